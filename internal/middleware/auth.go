// Package middleware contains Gin middleware functions. A middleware calls
// c.Next() to proceed or c.Abort() to stop the chain.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyAPIKey is where the auth middleware stores the caller's key.
const ContextKeyAPIKey = "api_key"

// extractKey reads the caller's key from, in order: the X-API-Key header, an
// "Authorization: Bearer" header, or the api_key query param.
func extractKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return c.Query("api_key")
}

// keyMatcher compares in constant time so response timing doesn't leak
// how much of a key was right.
type keyMatcher [][]byte

func newKeyMatcher(keys []string) keyMatcher {
	m := make(keyMatcher, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			m = append(m, []byte(k))
		}
	}
	return m
}

func (m keyMatcher) match(key string) bool {
	candidate := []byte(key)
	found := 0
	for _, k := range m {
		found |= subtle.ConstantTimeCompare(k, candidate)
	}
	return found == 1
}

// APIKeyAuth returns middleware that validates API keys. Missing and unknown
// keys are both 401.
func APIKeyAuth(validKeys []string) gin.HandlerFunc {
	keys := newKeyMatcher(validKeys)

	return func(c *gin.Context) {
		key := extractKey(c)
		if key == "" {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}
		if !keys.match(key) {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		// Downstream middleware (rate limiting) reads the key from the context.
		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

// AdminKeyAuth returns middleware that validates admin API keys. A key that
// is present but not an admin key is 403, not 401.
func AdminKeyAuth(adminKeys []string) gin.HandlerFunc {
	keys := newKeyMatcher(adminKeys)

	return func(c *gin.Context) {
		key := extractKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing admin API key"})
			return
		}
		if !keys.match(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid admin API key"})
			return
		}

		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}
