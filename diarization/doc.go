// Package diarization attributes transcript words to anonymous speakers.
//
// A run gates the clip to speech, embeds sliding windows through an
// embedding.Provider, clusters the windows, cleans up spurious clusters and
// then labels each word with the cluster of its nearest window. The whole
// run is a deterministic function of its inputs.
//
// # Usage
//
//	d := diarization.New(provider, cache, diarization.DefaultConfig())
//	res, err := d.Run(ctx, diarization.Input{Audio: audio, Segments: segs, Words: words})
//	for _, s := range res.Speakers {
//	    fmt.Println(s.ID, s.Label, s.FirstSeen)
//	}
package diarization
