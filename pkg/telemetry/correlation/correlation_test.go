package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMintsULID(t *testing.T) {
	ctx, id := Ensure(context.Background())

	_, err := ulid.ParseStrict(id)
	require.NoError(t, err)
	assert.Equal(t, id, ID(ctx))
}

func TestEnsureKeepsCallerID(t *testing.T) {
	_, id := Ensure(WithID(context.Background(), " abc "))
	assert.Equal(t, "abc", id)
}

func TestWithIDIgnoresBlank(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithID(ctx, "  "))
	assert.Empty(t, ID(nil))
}
