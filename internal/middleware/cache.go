package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl marks GET responses as cacheable by the client for maxAge and
// everything else as no-store. Handlers reset the header on failure.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	directives := []string{"private", "max-age=" + strconv.Itoa(int(maxAge.Seconds()))}
	value := strings.Join(directives, ", ")

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || maxAge <= 0 {
			c.Header("Cache-Control", "no-store")
			c.Next()
			return
		}

		c.Header("Cache-Control", value)
		c.Header("Vary", "Accept")
		c.Next()
	}
}
