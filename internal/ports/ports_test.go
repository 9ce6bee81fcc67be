package ports

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)

	vacant, err := CheckPort(port)
	require.NoError(t, err)
	assert.True(t, vacant)
}

func TestCheckPortBusy(t *testing.T) {
	port, err := GetFreePort()
	require.NoError(t, err)

	l, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	vacant, _ := CheckPort(port)
	assert.False(t, vacant)
}
