package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn_SendBackpressure(t *testing.T) {
	c := NewConn(nil, nil, nil)

	for i := 0; i < cap(c.send); i++ {
		require.NoError(t, c.Send([]byte("x")))
	}

	// A full buffer rejects instead of blocking the hub's fan-out loop.
	assert.Error(t, c.Send([]byte("overflow")))
}

func TestConn_Ready(t *testing.T) {
	c := NewConn(nil, nil, nil)

	assert.True(t, c.Ready())

	c.markClosed()
	assert.False(t, c.Ready())
}
