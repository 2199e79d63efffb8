package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runRequireToken(token, header string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	RequireToken(token)(next).ServeHTTP(rec, req)
	return rec
}

func TestRequireToken_Valid(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, runRequireToken("s3cret", "Bearer s3cret").Code)
}

func TestRequireToken_Missing(t *testing.T) {
	rec := runRequireToken("s3cret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestRequireToken_Wrong(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, runRequireToken("s3cret", "Bearer nope").Code)
}

func TestRequireToken_WrongScheme(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, runRequireToken("s3cret", "Basic s3cret").Code)
}

func TestRequireToken_EmptyConfiguredToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, runRequireToken("", "Bearer ").Code)
}
