package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v4"
)

// WithSuffix qualifies a queue or topic name with the environment so that
// staging and production never consume each other's messages.
func WithSuffix(name string) string {
	env := os.Getenv("API_ENV")
	if env == "" || env == "production" {
		return name
	}
	return fmt.Sprintf("%s_%s", name, env)
}

type downloadClaims struct {
	MovementID string `json:"movementId"`
	jwt.RegisteredClaims
}

// downloadKey reads the secret at call time so tokens minted after
// godotenv loads the local env are signed with the configured key.
func downloadKey() []byte {
	return []byte(os.Getenv("DOWNLOAD_TOKEN_SECRET"))
}

// MintDownloadToken returns the token embedded in the persistent ticket
// link. It carries no expiry; the presigned URL behind it is re-minted on
// every visit.
func MintDownloadToken(movementId string) (string, error) {
	claims := downloadClaims{
		MovementID: movementId,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: movementId,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(downloadKey())
}

func ParseDownloadToken(token string) (string, error) {
	claims := &downloadClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return downloadKey(), nil
	})
	if err != nil {
		return "", err
	}
	if !tkn.Valid || claims.MovementID == "" {
		return "", errors.New("invalid download token")
	}
	return claims.MovementID, nil
}
