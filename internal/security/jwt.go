package security

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"readquest/internal/models"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller carried on the request context
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the identity carries role
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, role)
}

// IsAdmin reports whether the token itself grants admin
func (i *Identity) IsAdmin() bool {
	return i.HasRole(models.RoleAdmin)
}

type identityKey struct{}

// WithIdentity attaches an identity to ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity on ctx, or nil for anonymous callers
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// UserIDFrom returns the caller's user id, or "" when anonymous
func UserIDFrom(ctx context.Context) string {
	if id := IdentityFrom(ctx); id != nil {
		return id.UserID
	}
	return ""
}

// TokenVerifier validates HS256 bearer tokens issued by the identity provider.
// Issuance is out of scope; this side only verifies.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Enabled reports whether a signing secret is configured
func (v *TokenVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// BearerToken pulls the token out of an Authorization header value
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// Verify parses and validates a token and returns the identity it names
func (v *TokenVerifier) Verify(tokenStr string) (*Identity, error) {
	if !v.Enabled() {
		return nil, fmt.Errorf("%w: verifier not configured", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if _, err := uuid.Parse(sub); err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	id := &Identity{UserID: sub, Roles: rolesFrom(claims)}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	return id, nil
}

// rolesFrom accepts "role": "admin" as well as "roles": ["admin", ...]
func rolesFrom(claims jwt.MapClaims) []string {
	var roles []string
	if role, ok := claims["role"].(string); ok && role != "" {
		roles = append(roles, strings.ToLower(role))
	}
	if list, ok := claims["roles"].([]any); ok {
		for _, item := range list {
			if role, ok := item.(string); ok && role != "" {
				roles = append(roles, strings.ToLower(role))
			}
		}
	}
	slices.Sort(roles)
	return slices.Compact(roles)
}
