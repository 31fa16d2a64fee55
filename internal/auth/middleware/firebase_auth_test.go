package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ocean-authoring/ocean-backend/internal/auth"
)

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(_ context.Context, token string) (*fbauth.Token, error) {
	uid, ok := s[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &fbauth.Token{UID: uid}, nil
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"owner": auth.OwnerID(c)})
	})
	return r
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	r := newRouter(FirebaseAuthMiddleware(stubVerifier{"good": "uid-1"}))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "missing authorization token"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "missing authorization token"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, "invalid token"},
		{"valid", "Bearer good", http.StatusOK, `"owner":"uid-1"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestHeaderAuth(t *testing.T) {
	r := newRouter(HeaderAuth())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-Id", " alice ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"owner":"alice"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Contains(t, w.Body.String(), `"owner":"demo-user"`)
}
