package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectMongo_BadURI(t *testing.T) {
	_, err := ConnectMongo(context.Background(), "not-a-uri", time.Second)
	assert.ErrorContains(t, err, "mongo connect")
}

func TestConnectMongoWithRetry_GivesUp(t *testing.T) {
	start := time.Now()
	_, err := ConnectMongoWithRetry(context.Background(), "not-a-uri", time.Second, 3, 10*time.Millisecond)
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestConnectMongoWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ConnectMongoWithRetry(ctx, "not-a-uri", time.Second, 5, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
