// Package provider implements the small generic provider framework used for
// swappable speakerbind backends.
//
// Embedding providers are registered by name in a Registry and created from
// a generic config map, so a deployment picks "sidecar" or "onnx" through
// configuration alone. ContextStore[C] is the typed key/value contract behind
// the caller-owned embedding cache; MemoryStore is the in-process
// implementation and redis.VectorStore the shared one.
//
//	reg := provider.NewRegistry[embedding.Provider]()
//	reg.RegisterFactory("sidecar", sidecar.Factory())
//	p, err := reg.Create("sidecar", map[string]any{"base_url": url})
package provider
