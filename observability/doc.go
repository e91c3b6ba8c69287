// Package observability provides OpenTelemetry tracing and metrics for
// speakerbind jobs.
//
// Tracing:
//
//	metrics, shutdown, err := observability.Setup(ctx, cfg, version.Version)
//	defer shutdown(ctx)
//
//	ctx, stage := observability.StartStage(ctx, metrics, observability.StageDiarize)
//	defer stage.End(ctx, err)
//
// Metrics:
//
//	metrics.RecordDiarization(ctx, windowsEmbedded, clustersFormed)
//	metrics.RecordEdges(ctx, len(graph.Edges))
//
// Every instrument is safe to call on a nil *Metrics, so stages run the same
// way with metrics disabled.
package observability
