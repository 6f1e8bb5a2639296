package transport

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// passwordAllowed checks the shared bearer secret. An empty configured
// password disables the check.
func passwordAllowed(c *gin.Context, password string) bool {
	if password == "" {
		return true
	}
	header := c.GetHeader("Authorization")
	expected := "Bearer " + password
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}

// PasswordFilter rejects requests without the shared bearer secret. The
// response is a bare 404 with an empty body: the server denies the API's
// existence rather than admitting there is something to authorize against.
func PasswordFilter(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !passwordAllowed(c, password) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Next()
	}
}
