package identity

import (
	"context"
	"errors"
	"strings"
)

// Role is the closed set of caller roles.
type Role int

const (
	RoleAnonymous Role = iota
	RoleCustomer
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleAdmin:
		return "admin"
	case RoleAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// ParseRole accepts only the roles a credential may carry.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "customer":
		return RoleCustomer, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleAnonymous, ErrUnauthenticated
	}
}

// Principal is the actor performing a request. The zero value is anonymous.
type Principal struct {
	ID       string
	Role     Role
	Username string
}

var Anonymous = Principal{}

func (p Principal) Authenticated() bool {
	return p.Role != RoleAnonymous && p.ID != ""
}

// Claims is the verified claim set handed over by the credential issuer.
type Claims struct {
	Subject  string
	Username string
	Role     string
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
)

// FromClaims turns a verified claim set into a principal.
func FromClaims(claims Claims) (Principal, error) {
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Anonymous, ErrUnauthenticated
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Anonymous, err
	}
	return Principal{
		ID:       subject,
		Role:     role,
		Username: strings.TrimSpace(claims.Username),
	}, nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the request principal, or Anonymous when none was attached.
func FromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Anonymous
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok {
		return Anonymous
	}
	return p
}
