package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/payfees/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// ReceiptSigner issues and validates receipt tokens. A receipt token proves
// the bearer made a given payment and lets them fetch its receipt and the
// payer's history.
type ReceiptSigner struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// Claims represents the custom JWT claims for a receipt.
type Claims struct {
	PaymentID string `json:"payment_id"`
	Phone     string `json:"phone"`
	jwt.RegisteredClaims
}

// NewReceiptSigner creates a signer with the given secret and token duration.
// secretKey should be a strong random string (e.g., 32 bytes).
func NewReceiptSigner(secretKey string, tokenDuration time.Duration) *ReceiptSigner {
	return &ReceiptSigner{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Issue creates a token for the given payment.
func (s *ReceiptSigner) Issue(rec *models.PaymentRecord) (string, error) {
	now := s.now()
	claims := &Claims{
		PaymentID: rec.ID,
		Phone:     rec.UserPhone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and validates a token, returning the claims if valid.
func (s *ReceiptSigner) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
