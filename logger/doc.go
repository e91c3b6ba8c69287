// Package logger provides structured logging for speakerbind using zerolog.
//
// Every pipeline stage logs through a component-scoped Logger carrying the
// clip and job identifiers, so one run can be followed across diarization,
// binding and timeline assembly.
//
//	logging:
//	  level: "info"
//	  format: "json"
//
//	log := logger.Get("diarization")
//	log.Info("clustering finished", logger.Fields("clusters", 3))
package logger
