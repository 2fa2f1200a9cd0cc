package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CookieName is the cookie carrying the signed client id.
const CookieName = "diet_planner_client"

const issuer = "ai-diet-planner"

// Cookies issues and verifies the client identity cookie. The cookie is an
// HS256 JWT whose subject is a random client id.
type Cookies struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCookies(secret string, ttl time.Duration, secure bool) *Cookies {
	return &Cookies{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Issue creates a new client id and the cookie that carries it.
func (c *Cookies) Issue() (string, *http.Cookie, error) {
	clientID := uuid.NewString()
	now := c.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   clientID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign client cookie: %w", err)
	}

	return clientID, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// ClientID verifies the cookie on r and returns its subject.
func (c *Cookies) ClientID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid client cookie: %w", err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid client id: %w", err)
	}
	return claims.Subject, nil
}

// Ensure returns the client id of r, issuing a fresh cookie on w when the
// request carries none or an invalid one.
func (c *Cookies) Ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	id, err := c.ClientID(r)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, http.ErrNoCookie) {
		log.Debug().Err(err).Msg("Replacing client cookie")
	}

	id, cookie, err := c.Issue()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, cookie)
	return id, nil
}
