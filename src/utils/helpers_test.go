package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSuffix(t *testing.T) {
	os.Unsetenv("API_ENV")
	assert.Equal(t, "emails", WithSuffix("emails"))

	os.Setenv("API_ENV", "production")
	assert.Equal(t, "emails", WithSuffix("emails"))

	os.Setenv("API_ENV", "staging")
	assert.Equal(t, "emails_staging", WithSuffix("emails"))
	os.Unsetenv("API_ENV")
}

func TestDownloadTokenRoundTrip(t *testing.T) {
	token, err := MintDownloadToken("mov_123")
	assert.Nil(t, err)
	assert.NotEmpty(t, token)

	movementId, err := ParseDownloadToken(token)
	assert.Nil(t, err)
	assert.Equal(t, "mov_123", movementId)
}

func TestParseDownloadTokenRejectsGarbage(t *testing.T) {
	_, err := ParseDownloadToken("not-a-token")
	assert.NotNil(t, err)
}

func TestDownloadTokenUsesConfiguredSecret(t *testing.T) {
	// The signing key must follow the env, not a value captured before
	// the local env file was loaded.
	os.Setenv("DOWNLOAD_TOKEN_SECRET", "first-secret")
	token, err := MintDownloadToken("mov_123")
	assert.Nil(t, err)

	movementId, err := ParseDownloadToken(token)
	assert.Nil(t, err)
	assert.Equal(t, "mov_123", movementId)

	os.Setenv("DOWNLOAD_TOKEN_SECRET", "rotated-secret")
	_, err = ParseDownloadToken(token)
	assert.NotNil(t, err)
	os.Unsetenv("DOWNLOAD_TOKEN_SECRET")
}
