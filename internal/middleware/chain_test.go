package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/stretchr/testify/assert"
)

type originList []string

func (o originList) IsAllowedOrigin(origin string) bool {
	for _, allowed := range o {
		if allowed == origin {
			return true
		}
	}
	return false
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := NewChain(mark("a"), mark("b"), nil)
	chain.Add(mark("c"))
	assert.Equal(t, 3, chain.Len())

	h := chain.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestRecover(t *testing.T) {
	h := NewChain(Recover(logging.Nop())).Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	h := NewChain(SecurityHeaders()).Then(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	h := NewChain(CORS(originList{"https://library.example.org"})).Then(ok)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantCode   int
		wantBody   string
	}{
		{"allowed", http.MethodGet, "https://library.example.org", "https://library.example.org", http.StatusOK, "ok"},
		{"denied", http.MethodGet, "https://evil.example.com", "", http.StatusOK, "ok"},
		{"no origin", http.MethodGet, "", "", http.StatusOK, "ok"},
		{"preflight", http.MethodOptions, "https://library.example.org", "https://library.example.org", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/healthz", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
		})
	}
}
