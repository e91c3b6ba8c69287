package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerbind/errors"
)

// ConcurrencyLimit admits at most n requests at a time and rejects the rest
// with 503 UNAVAILABLE. n <= 0 disables the limit.
func ConcurrencyLimit(n int) gin.HandlerFunc {
	if n <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	slots := make(chan struct{}, n)
	return func(c *gin.Context) {
		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			c.Next()
		default:
			resp := errors.Unavailable("job runner", nil).
				WithDetail("max_concurrent_jobs", n).ToResponse()
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp)
		}
	}
}
