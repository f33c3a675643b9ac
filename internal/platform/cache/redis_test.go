package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	opt := QueueOptions(client)
	assert.Equal(t, mr.Addr(), opt.Addr)
}

func TestOptionsFromURL(t *testing.T) {
	opts, err := Options("redis://:secret@cache:6380/3", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = New(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
