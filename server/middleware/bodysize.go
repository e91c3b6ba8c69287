package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerbind/util"
)

const defaultMaxBodySize = 64 << 20

// BodySizeLimit caps the request body at maxSize ("64MB", "512KB"). Reads
// past the limit fail, which the job handler reports as invalid input.
func BodySizeLimit(maxSize string) gin.HandlerFunc {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, size)
		c.Next()
	}
}
