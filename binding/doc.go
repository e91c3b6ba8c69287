// Package binding links diarized speakers to on-screen face tracks.
//
// For each attributed word the builder looks up the nearest analyzed video
// sample, keeps the largest faces as candidates and scores them by size,
// centrality, recent motion and mouth activity. Word evidence accumulates
// into a speaker by track weight matrix, and the posterior for each pair
// combines how often the speaker selects the track with how exclusively the
// track belongs to that speaker:
//
//	association = P(track|speaker) * P(speaker|track)^ExclusivityExponent
//
// Posteriors are normalized per speaker. Low-margin or low-posterior
// speakers are annotated with reason codes, never dropped.
package binding
