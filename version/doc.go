// Package version carries the build version stamped into artifact
// provenance and reported by the CLI and HTTP surfaces.
//
// Values are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/speakerbind/version.Version=1.2.0" ./cmd/speakerbind
//
// When unset, the VCS revision recorded by the Go toolchain is used.
package version
