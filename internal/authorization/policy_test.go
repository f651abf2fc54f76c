package authorization

import (
	"testing"

	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/stretchr/testify/assert"
)

var (
	admin    = identity.Principal{ID: "1", Role: identity.RoleAdmin}
	customer = identity.Principal{ID: "2", Role: identity.RoleCustomer}
)

func TestCanView(t *testing.T) {
	tests := []struct {
		name    string
		p       identity.Principal
		ownerID string
		want    bool
	}{
		{"admin sees any owner", admin, "99", true},
		{"customer sees own", customer, "2", true},
		{"customer blocked from others", customer, "3", false},
		{"anonymous never", identity.Anonymous, "", false},
		{"customer without id", identity.Principal{Role: identity.RoleCustomer}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.p, tt.ownerID))
		})
	}
}

func TestCanAdminister(t *testing.T) {
	assert.True(t, CanAdminister(admin))
	assert.False(t, CanAdminister(customer))
	assert.False(t, CanAdminister(identity.Anonymous))
}

func TestAuthorizeErrors(t *testing.T) {
	assert.ErrorIs(t, AuthorizeView(identity.Anonymous, "2"), identity.ErrUnauthenticated)
	assert.ErrorIs(t, AuthorizeView(customer, "3"), ErrForbidden)
	assert.NoError(t, AuthorizeView(customer, "2"))

	assert.ErrorIs(t, AuthorizeAdmin(identity.Anonymous), identity.ErrUnauthenticated)
	assert.ErrorIs(t, AuthorizeAdmin(customer), ErrForbidden)
	assert.NoError(t, AuthorizeAdmin(admin))
}
