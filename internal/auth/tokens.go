package auth

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Claims is the token payload: a user id in the subject and the role names
// granted at issue time.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds a token issuer. The secret must be non-empty.
func NewTokens(secret, issuer string, ttl time.Duration) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the user and roles.
func (t *Tokens) Issue(userID int64, roles []string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Roles: normalizeRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, expiry and claim schema and returns the
// principal. Every failure wraps shared.ErrUnauthorized.
func (t *Tokens) Verify(raw string) (shared.Principal, time.Time, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return shared.Principal{}, time.Time{}, fmt.Errorf("%w: token expired", shared.ErrUnauthorized)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return shared.Principal{}, time.Time{}, fmt.Errorf("%w: invalid token signature", shared.ErrUnauthorized)
		default:
			return shared.Principal{}, time.Time{}, fmt.Errorf("%w: malformed token", shared.ErrUnauthorized)
		}
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return shared.Principal{}, time.Time{}, fmt.Errorf("%w: invalid token subject", shared.ErrUnauthorized)
	}
	if claims.ID == "" {
		return shared.Principal{}, time.Time{}, fmt.Errorf("%w: token id missing", shared.ErrUnauthorized)
	}
	return shared.Principal{
		UserID:  userID,
		Roles:   normalizeRoles(claims.Roles),
		TokenID: claims.ID,
	}, claims.ExpiresAt.Time, nil
}

func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
