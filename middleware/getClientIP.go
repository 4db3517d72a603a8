package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// getClientIP keys rate limiting. The first X-Forwarded-For hop wins, then
// X-Real-IP, then the socket address. Header values that do not parse as an
// IP are ignored so junk headers cannot mint fresh limiter buckets.
func getClientIP(c *gin.Context) string {
	first, _, _ := strings.Cut(c.GetHeader("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, c.GetHeader("X-Real-IP")} {
		if ip := net.ParseIP(strings.TrimSpace(candidate)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
