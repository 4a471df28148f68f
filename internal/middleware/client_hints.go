package middleware

import "github.com/gin-gonic/gin"

// PlatformVersionHint is the client hint that tells Windows 11 apart from
// Windows 10; both send "Windows NT 10.0" in the User-Agent.
const PlatformVersionHint = "Sec-CH-UA-Platform-Version"

// ClientHints asks browsers to send the platform version hint on later requests.
func ClientHints() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Accept-CH", PlatformVersionHint)
		c.Next()
	}
}
