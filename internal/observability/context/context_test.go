package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(WithRequestID(context.Background(), "")))
}

func TestActorIgnoresBlankType(t *testing.T) {
	ctx := WithActor(context.Background(), "", "42")
	actorType, actorID := ActorFromContext(ctx)
	assert.Empty(t, actorType)
	assert.Empty(t, actorID)

	actorType, actorID = ActorFromContext(WithActor(context.Background(), "admin", "42"))
	assert.Equal(t, "admin", actorType)
	assert.Equal(t, "42", actorID)
}

func TestClientFromContext(t *testing.T) {
	ip, ua := ClientFromContext(WithClient(context.Background(), "10.0.0.1", "curl/8"))
	assert.Equal(t, "10.0.0.1", ip)
	assert.Equal(t, "curl/8", ua)
}
