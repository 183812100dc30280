package middlewares_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/storefront/internal/actorctx"
	"github.com/geocoder89/storefront/internal/auth"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	userID string
	err    error
}

func (f fakeVerifier) VerifySessionToken(string) (*auth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &auth.Claims{
		Email:            "a@b.test",
		TokenType:        auth.TokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{Subject: f.userID},
	}, nil
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		verifier fakeVerifier
		want     int
	}{
		{name: "missing header", header: "", verifier: fakeVerifier{userID: "u1"}, want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", verifier: fakeVerifier{userID: "u1"}, want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", verifier: fakeVerifier{err: auth.ErrInvalidToken}, want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer good", verifier: fakeVerifier{userID: "u1"}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middlewares.RequestID())
			r.GET("/me", middlewares.NewAuthMiddleware(tt.verifier).RequireAuth(), func(c *gin.Context) {
				fromGin, _ := middlewares.UserIDFromContext(c)
				fromCtx, _ := actorctx.UserIDFrom(c.Request.Context())
				c.JSON(http.StatusOK, gin.H{"gin": fromGin, "ctx": fromCtx})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d body=%s", w.Code, tt.want, w.Body.String())
			}

			if tt.want == http.StatusOK {
				var got map[string]string
				_ = json.Unmarshal(w.Body.Bytes(), &got)
				if got["gin"] != "u1" || got["ctx"] != "u1" {
					t.Fatalf("identity not propagated: %v", got)
				}
				return
			}

			body := decodeErr(t, w)
			if body.Error.Code != "unauthorized" {
				t.Fatalf("code = %q", body.Error.Code)
			}
			if body.Error.RequestID == "" {
				t.Fatalf("expected request id in error envelope")
			}
		})
	}
}

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	rl := middlewares.NewRateLimiter(2)

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(middlewares.KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do("10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}

	w := do("10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	if decodeErr(t, w).Error.Code != "rate_limited" {
		t.Fatalf("unexpected code")
	}

	// other clients are unaffected
	if w := do("10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("second client status = %d", w.Code)
	}
}

func TestRecoveryHidesPanicMessage(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.Recovery(nil))
	r.GET("/boom", func(*gin.Context) { panic(errors.New("db password is hunter2")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "hunter2") {
		t.Fatalf("panic detail leaked: %s", w.Body.String())
	}
	if decodeErr(t, w).Error.Code != "internal_error" {
		t.Fatalf("unexpected code")
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.POST("/x", middlewares.RequireJSON(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestSecurityHeadersHSTSBehindProxy(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS should not be sent over plain http")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff")
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS behind https proxy")
	}
}

func TestRequireJSONAcceptsSuffix(t *testing.T) {
	r := gin.New()
	r.PATCH("/x", middlewares.RequireJSON(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPatch, "/x", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/merge-patch+json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
