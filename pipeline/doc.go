// Package pipeline provides composable, pull-based data pipeline operators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect.
// Every operator runs on the caller's goroutine and preserves input
// order, which the embedding extractor relies on for deterministic output.
//
//	src := pipeline.FromSlice(windows)
//	kept := pipeline.Filter(src, inGate)
//	batches := pipeline.Batch(kept, 16)
//	vectors := pipeline.FlatMap(batches, embedBatch)
//	out, err := pipeline.Collect(ctx, vectors)
package pipeline
