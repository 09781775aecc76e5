package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	sessionID uuid.UUID
}

func (c *testClaims) GetSessionID() uuid.UUID {
	return c.sessionID
}

type testTokenValidator struct {
	tokens map[string]uuid.UUID
}

func (v *testTokenValidator) ValidateToken(tokenString string) (SessionIDGetter, error) {
	id, ok := v.tokens[tokenString]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &testClaims{sessionID: id}, nil
}

func newTestMux(validator TokenValidator, captured *uuid.UUID) *http.ServeMux {
	handler := RequireSession(validator, "token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetSessionID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		*captured = id
		w.WriteHeader(http.StatusNoContent)
	}))

	mux := http.NewServeMux()
	mux.Handle("GET /ws/{token}", handler)
	mux.Handle("DELETE /sessions", handler)
	return mux
}

func TestRequireSession_PathToken(t *testing.T) {
	id := uuid.New()
	validator := &testTokenValidator{tokens: map[string]uuid.UUID{"good": id}}
	var captured uuid.UUID

	rec := httptest.NewRecorder()
	newTestMux(validator, &captured).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/good", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, captured)
}

func TestRequireSession_BearerToken(t *testing.T) {
	id := uuid.New()
	validator := &testTokenValidator{tokens: map[string]uuid.UUID{"good": id}}
	var captured uuid.UUID

	req := httptest.NewRequest(http.MethodDelete, "/sessions", nil)
	req.Header.Set("Authorization", "bearer good")
	rec := httptest.NewRecorder()
	newTestMux(validator, &captured).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, captured)
}

func TestRequireSession_Rejected(t *testing.T) {
	validator := &testTokenValidator{tokens: map[string]uuid.UUID{}}
	var captured uuid.UUID
	mux := newTestMux(validator, &captured)

	tests := []struct {
		name   string
		method string
		path   string
		header string
	}{
		{"unknown path token", http.MethodGet, "/ws/bad", ""},
		{"missing header", http.MethodDelete, "/sessions", ""},
		{"wrong scheme", http.MethodDelete, "/sessions", "Basic abc"},
		{"extra parts", http.MethodDelete, "/sessions", "Bearer a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Equal(t, uuid.Nil, captured)
}

func TestGetSessionID_Missing(t *testing.T) {
	_, err := GetSessionID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSessionID(req.Context(), id))
	got, err := GetSessionID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
