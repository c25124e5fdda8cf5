package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"golang.org/x/crypto/blake2b"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
	csrfMaxAge     = 86400
	nonceSize      = 32
)

// CSRF is a signed double-submit cookie check. Unsafe requests must echo the
// cookie in the X-CSRF-Token header or the csrf_token form field, and the
// token must carry a valid keyed BLAKE2b tag.
type CSRF struct {
	key []byte
}

// NewCSRF keys token signatures with secret. An empty secret gets a random
// per-process key, which invalidates tokens on restart.
func NewCSRF(secret string) *CSRF {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &CSRF{key: key}
}

type tokenKey struct{}

// Token returns the CSRF token in effect for the request, including one
// issued by the middleware on this very response.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func (c *CSRF) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(CSRFCookieName); err == nil {
			token = cookie.Value
		} else {
			token = c.NewToken()
			c.setCookie(w, r, token)
		}
		r = r.WithContext(context.WithValue(r.Context(), tokenKey{}, token))

		if !isSafeMethod(r.Method) && !c.check(r) {
			http.Error(w, "invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewToken returns base64url(nonce || tag).
func (c *CSRF) NewToken() string {
	nonce := make([]byte, nonceSize)
	_, _ = rand.Read(nonce)
	return base64.RawURLEncoding.EncodeToString(append(nonce, c.tag(nonce)...))
}

// Valid reports whether token was issued with this key.
func (c *CSRF) Valid(token string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != nonceSize+blake2b.Size256 {
		return false
	}
	return subtle.ConstantTimeCompare(raw[nonceSize:], c.tag(raw[:nonceSize])) == 1
}

func (c *CSRF) tag(nonce []byte) []byte {
	mac, err := blake2b.New256(c.key)
	if err != nil {
		panic(err)
	}
	mac.Write(nonce)
	return mac.Sum(nil)
}

func (c *CSRF) check(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	sent := r.Header.Get(CSRFHeaderName)
	if sent == "" {
		sent = r.FormValue(csrfFormField)
	}
	if subtle.ConstantTimeCompare([]byte(sent), []byte(cookie.Value)) != 1 {
		return false
	}
	return c.Valid(sent)
}

// Cookie readable by the page script, which echoes it in the header.
func (c *CSRF) setCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfMaxAge,
		Secure:   isTLS(r),
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
