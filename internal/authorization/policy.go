package authorization

import (
	"errors"

	"github.com/smallbiznis/garagedesk/internal/identity"
)

var ErrForbidden = errors.New("forbidden")

// CanView reports whether p may read a record owned by ownerID.
func CanView(p identity.Principal, ownerID string) bool {
	switch p.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleCustomer:
		return p.ID != "" && p.ID == ownerID
	case identity.RoleAnonymous:
		return false
	default:
		return false
	}
}

// CanAdminister reports whether p may run admin-only operations.
func CanAdminister(p identity.Principal) bool {
	switch p.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleCustomer, identity.RoleAnonymous:
		return false
	default:
		return false
	}
}

// AuthorizeView maps CanView onto the error taxonomy. Anonymous callers are
// unauthenticated rather than forbidden.
func AuthorizeView(p identity.Principal, ownerID string) error {
	if !p.Authenticated() {
		return identity.ErrUnauthenticated
	}
	if !CanView(p, ownerID) {
		return ErrForbidden
	}
	return nil
}

func AuthorizeAdmin(p identity.Principal) error {
	if !p.Authenticated() {
		return identity.ErrUnauthenticated
	}
	if !CanAdminister(p) {
		return ErrForbidden
	}
	return nil
}
