package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/honeynil/storefront-api/internal/models"
)

// Verifier turns a raw token into its claims. On failure it returns an *Error
// and nil claims, never both.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.TokenClaims, error)
}

// JWTVerifier verifies HS256 tokens signed with a single shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier returns a verifier for secret. A non-empty issuer must match
// the token's iss claim.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (v *JWTVerifier) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	return opts
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*models.TokenClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return v.secret, nil
	}, v.parserOptions()...)
	if err != nil {
		return nil, classify(err)
	}

	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return nil, newError(KindInvalidCredential, err)
	}

	out := &models.TokenClaims{UserID: userID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// classify maps a jwt parse error onto a Kind. Structural and signature
// failures are checked before expiry so a forged token is never reported as
// merely expired.
func classify(err error) *Error {
	switch {
	case stderrors.Is(err, jwt.ErrTokenMalformed),
		stderrors.Is(err, jwt.ErrTokenSignatureInvalid),
		stderrors.Is(err, jwt.ErrTokenUnverifiable),
		stderrors.Is(err, jwt.ErrTokenInvalidIssuer),
		stderrors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return newError(KindInvalidCredential, err)
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return newError(KindExpiredCredential, err)
	}
	return newError(KindVerificationUnknown, err)
}

func parseSubject(sub string) (int32, error) {
	if sub == "" {
		return 0, stderrors.New("token has no subject")
	}
	id, err := strconv.ParseInt(sub, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", sub, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid subject %q", sub)
	}
	return int32(id), nil
}
