// Package util provides small generic helpers shared by the speakerbind
// stages: deterministic map traversal, pointer helpers and content-derived
// identifiers.
package util
