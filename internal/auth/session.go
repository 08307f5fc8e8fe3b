package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	SessionCookieName = "admin_session"
	SessionTTL        = 12 * time.Hour

	sessionSubject = "admin"
)

var (
	ErrInvalidToken   = errors.New("invalid admin token")
	ErrInvalidSession = errors.New("invalid admin session")
)

// AdminSessions is the single place that decides who is an administrator.
// The admin token is kept only as a bcrypt hash; a successful login yields a
// signed, expiring session cookie.
type AdminSessions struct {
	tokenHash []byte
	signer    *Signer
	secure    bool
	now       func() time.Time
}

func NewAdminSessions(adminToken string, signer *Signer, secureCookie bool) (*AdminSessions, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AdminSessions{tokenHash: hash, signer: signer, secure: secureCookie, now: time.Now}, nil
}

// CheckToken reports whether token is the admin token.
func (a *AdminSessions) CheckToken(token string) bool {
	if token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.tokenHash, []byte(token)) == nil
}

// Login checks token and returns the session cookie to set on success.
func (a *AdminSessions) Login(token string) (*http.Cookie, error) {
	if !a.CheckToken(token) {
		return nil, ErrInvalidToken
	}
	return a.Issue(), nil
}

func (a *AdminSessions) Issue() *http.Cookie {
	expires := a.now().Add(SessionTTL)
	value := sessionSubject + ":" + strconv.FormatInt(expires.Unix(), 10)
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    a.signer.Sign(value),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Logout returns a cookie that clears the session.
func (a *AdminSessions) Logout() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Verify checks the session cookie of r.
func (a *AdminSessions) Verify(r *http.Request) error {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ErrInvalidSession
	}
	value, err := a.signer.Verify(cookie.Value)
	if err != nil {
		return ErrInvalidSession
	}

	subject, expiry, ok := strings.Cut(value, ":")
	if !ok || subject != sessionSubject {
		return ErrInvalidSession
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil || !a.now().Before(time.Unix(unix, 0)) {
		return ErrInvalidSession
	}
	return nil
}

// Tokens holds the static shared secrets of the JSON API.
type Tokens struct {
	API   string
	Admin string
}

func equal(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (t Tokens) CheckAPIKey(key string) bool {
	return equal(key, t.API)
}

func (t Tokens) CheckAdminKey(key string) bool {
	return equal(key, t.Admin)
}
