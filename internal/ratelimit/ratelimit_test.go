package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/garagedesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCheckoutLimiterAllows(t *testing.T) {
	var l *CheckoutLimiter
	assert.False(t, l.Enabled())

	decision, err := l.Take(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	release, ok, err := l.LockInvoice(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, release(context.Background()))
}

func TestNewCheckoutLimiterWithoutClient(t *testing.T) {
	assert.Nil(t, NewCheckoutLimiter(nil, nil))
}

func TestLimiterDisabledWithoutRate(t *testing.T) {
	l := &CheckoutLimiter{
		bucket: &bucket{},
		garage: config.NewStaticGarageConfigHolder(config.GarageConfig{Currency: "USD"}),
	}
	assert.False(t, l.Enabled())

	decision, err := l.Take(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestBucketWithoutClient(t *testing.T) {
	var b *bucket
	_, err := b.take(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, errBucketUnavailable)
	assert.Nil(t, newBucket(nil))
}

func TestIdleTTL(t *testing.T) {
	assert.Equal(t, 50*time.Second, idleTTL(0.2, 5))
	assert.Equal(t, time.Second, idleTTL(100, 1))
	assert.Equal(t, time.Second, idleTTL(0, 0))
}

func TestInvoiceLockWithoutClient(t *testing.T) {
	var l *invoiceLock
	release, ok, err := l.acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, release(context.Background()))
}
