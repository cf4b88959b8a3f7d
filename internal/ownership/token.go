// Package ownership issues and checks owner tokens for uploaded videos.
//
// An owner token is an HS256 JWT whose subject is a video id. It proves that
// the caller received the upload response for that video; it says nothing
// about who the caller is. The free-text userId carried on records is never
// consulted here.
package ownership

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "movie-meme-api"

var (
	// ErrMissingToken is returned when a check is required but no token was sent.
	ErrMissingToken = errors.New("owner token required")
	// ErrInvalidToken covers bad signatures, malformed tokens and tokens for
	// another video.
	ErrInvalidToken = errors.New("invalid owner token")
)

// Issuer signs and verifies owner tokens. A nil *Issuer is disabled: it issues
// nothing and accepts every request.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer returns nil when secret is empty, which disables owner tokens.
func NewIssuer(secret string) *Issuer {
	if secret == "" {
		return nil
	}
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Enabled reports whether tokens are issued and enforced.
func (i *Issuer) Enabled() bool { return i != nil }

// Issue returns a token for videoID. A disabled issuer returns "".
func (i *Issuer) Issue(videoID string) (string, error) {
	if i == nil {
		return "", nil
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   issuer,
		Subject:  videoID,
		IssuedAt: jwt.NewNumericDate(i.now()),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign owner token: %w", err)
	}
	return signed, nil
}

// Verify checks an Authorization header value ("Bearer <token>") against
// videoID. A disabled issuer accepts anything.
func (i *Issuer) Verify(authorization, videoID string) error {
	if i == nil {
		return nil
	}
	raw, ok := strings.CutPrefix(strings.TrimSpace(authorization), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(videoID),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
