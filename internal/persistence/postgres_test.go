package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The readiness probe pings through the wrapper, so it must behave on
// a wrapper that never connected (empty DSN leaves Pool nil).
func TestPostgresPingWithoutPool(t *testing.T) {
	var unset *Postgres
	require.Error(t, unset.Ping(context.Background()))

	disconnected := &Postgres{}
	require.Error(t, disconnected.Ping(context.Background()))

	assert.Nil(t, disconnected.PoolHandle())
	disconnected.Close()
	unset.Close()
}

func TestRedisPingWithoutClient(t *testing.T) {
	var unset *Redis
	require.Error(t, unset.Ping(context.Background()))
	assert.Nil(t, unset.ClientHandle())
	unset.Close()
}
