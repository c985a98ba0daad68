// file: internal/server/middleware/request_size.go
// version: 2.0.0
// guid: f2129ae7-cf11-4888-bd4f-ab4b578f8f18

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func methodHasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// selectBodyLimit gives catalog writes, which carry a whole book bag with
// its description and table of contents, the larger limit.
func selectBodyLimit(path string, criteriaLimit, catalogLimit int64) int64 {
	if strings.HasSuffix(path, "/catalog") {
		return catalogLimit
	}
	return criteriaLimit
}

// MaxRequestBodySize enforces request body limits by route class.
func MaxRequestBodySize(criteriaLimitBytes, catalogLimitBytes int64) gin.HandlerFunc {
	if criteriaLimitBytes < 1 {
		criteriaLimitBytes = 64 << 10
	}
	if catalogLimitBytes < criteriaLimitBytes {
		catalogLimitBytes = criteriaLimitBytes
	}

	return func(c *gin.Context) {
		if !methodHasBody(c.Request.Method) {
			c.Next()
			return
		}

		limit := selectBodyLimit(c.Request.URL.Path, criteriaLimitBytes, catalogLimitBytes)
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":  "request body too large",
				"code":   "BODY_TOO_LARGE",
				"status": http.StatusRequestEntityTooLarge,
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
