// Package resilience guards calls to remote dependencies such as the
// embedding sidecar.
//
// Retry repeats a call with exponential backoff while the error is
// transient. A Breaker stops calling a dependency after repeated failures
// and probes it again once a cool-down has passed. They compose:
//
//	br := resilience.NewBreaker(resilience.DefaultBreakerConfig("sidecar"))
//	err := br.Execute(func() error {
//	    return resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), call)
//	})
package resilience
