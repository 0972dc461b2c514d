package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	err := newAPIError(http.StatusUnprocessableEntity, []byte(`{"detail":[{"loc":["body"],"msg":"field required"}]}`))
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Contains(t, err.Detail, "field required")

	err = newAPIError(http.StatusBadGateway, nil)
	assert.Equal(t, "Bad Gateway", err.Detail)

	assert.True(t, IsUnauthorized(newAPIError(http.StatusUnauthorized, []byte(`{"detail":"Invalid token"}`))))
	assert.False(t, IsNotFound(ErrUnauthenticated))
}
