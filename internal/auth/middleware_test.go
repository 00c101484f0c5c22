package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeRegistry struct {
	sessions map[string]Session
	err      error
}

func (f *fakeRegistry) Create(_ context.Context, s Session) (string, error) { return "", nil }

func (f *fakeRegistry) Lookup(_ context.Context, token string) (Session, bool, error) {
	if f.err != nil {
		return Session{}, false, f.err
	}
	s, ok := f.sessions[token]
	return s, ok, nil
}

func (f *fakeRegistry) Delete(_ context.Context, token string) error { return nil }

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})
	return r
}

func TestRequireBearer(t *testing.T) {
	reg := &fakeRegistry{sessions: map[string]Session{"tok": {UserID: "u1"}}}
	r := newRouter(RequireBearer(reg))

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer tok", http.StatusOK, "u1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic tok", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRequireSession_Cookie(t *testing.T) {
	reg := &fakeRegistry{sessions: map[string]Session{"tok": {UserID: "u2"}}}
	r := newRouter(RequireSession(reg))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u2", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "legacy route ignores bearer header")
}

func TestRequireBearer_LookupError(t *testing.T) {
	r := newRouter(RequireBearer(&fakeRegistry{err: errors.New("redis down")}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
