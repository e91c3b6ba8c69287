// Package embedding turns gated speech audio into an ordered sequence of
// unit-normalized window embeddings.
//
// The neural model itself is an injected Provider that declares its window
// length and sample rate. The Extractor slides a fixed window and hop over
// the audio, keeps windows whose midpoint falls inside the speech gate,
// optionally drops low-energy windows, tapers short windows and asks the
// provider for vectors, batching requests when the provider supports it.
// A caller-owned Cache can short-circuit repeated windows across runs.
package embedding
