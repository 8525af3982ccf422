package settlement

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

// tokenBytes is the entropy behind each response token. 32 bytes keeps
// the URL-safe form short enough for a link while staying unguessable.
const tokenBytes = 32

// NewResponseToken returns a URL-safe single-use token for a supplier
// response link.
func NewResponseToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate response token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// validateToken checks a presented token against the order. The checks
// are ordered: a token that does not match is rejected before anything
// about its state is revealed, then reuse, then expiry, then whether the
// order still takes responses at all.
func (s *Service) validateToken(order *store.PurchaseOrder, presented string) error {
	if subtle.ConstantTimeCompare([]byte(order.ResponseToken), []byte(presented)) != 1 {
		return ErrTokenInvalid
	}
	if order.ResponseTokenUsedAt != nil {
		return ErrTokenAlreadyUsed
	}
	if s.now().After(order.ResponseTokenExpiresAt) {
		return ErrTokenExpired
	}
	if order.Status != store.OrderStatusSent {
		return ErrOrderNotRespondable
	}
	return nil
}
