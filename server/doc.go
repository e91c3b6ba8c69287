// Package server is the gin HTTP surface over the job runner.
//
// Routes:
//
//	POST /v1/jobs   run one clip-level job and return every artifact
//	GET  /healthz   probe the embedding provider
//	GET  /version   build version and artifact schema versions
//
// Every request passes through request-id propagation, panic recovery,
// CORS and request logging (server/middleware). Job submissions are also
// bounded in body size and concurrency.
package server
