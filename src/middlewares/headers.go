package middlewares

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	ctx.Header("X-XSS-Protection", "1; mode=block")
	ctx.Next()
}

// VerifySecret guards the internal endpoints (seatmap import, manual
// resend) with a shared header secret. An empty INTERNAL_API_SECRET
// leaves them open, which is only acceptable locally.
func VerifySecret(ctx *gin.Context) {
	secret := os.Getenv("INTERNAL_API_SECRET")
	if secret == "" {
		if os.Getenv("API_ENV") == "local" {
			return
		}
		err := errors.New("internal endpoints are disabled")
		log.Printf("Check failed: %s\n", err.Error())
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	provided := ctx.GetHeader("x-secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}
}
