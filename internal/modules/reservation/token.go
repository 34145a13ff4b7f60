package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const tokenName = "pcbooking_reservation"

// TokenCodec signs and encrypts sessions into opaque reservation tokens, so
// the completion step can trust createdAt without server-side state.
type TokenCodec struct {
	sc *securecookie.SecureCookie
}

func NewTokenCodec(hashKey, blockKey []byte, window time.Duration) *TokenCodec {
	if window <= 0 {
		window = DefaultWindow
	}
	sc := securecookie.New(hashKey, blockKey)
	// the session's own expiresAt is authoritative; MaxAge only bounds replay
	sc.MaxAge(int((window + time.Minute).Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &TokenCodec{sc: sc}
}

func (t *TokenCodec) Encode(s *Session) (string, error) {
	token, err := t.sc.Encode(tokenName, s)
	if err != nil {
		return "", fmt.Errorf("encode reservation token: %w", err)
	}
	return token, nil
}

func (t *TokenCodec) Decode(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	var s Session
	if err := t.sc.Decode(tokenName, token, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if s.ID == "" || s.ExpiresAt.IsZero() {
		return nil, ErrInvalidToken
	}
	return &s, nil
}
