package launcher

import (
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExposePorts(t *testing.T) {
	portSet := exposePorts(8501)
	require.Len(t, portSet, 1)
	_, ok := portSet[nat.Port("8501/tcp")]
	assert.True(t, ok)
}

func TestBindPortsAllInterfaces(t *testing.T) {
	portMap := bindPorts(8501)
	bindings := portMap[nat.Port("8501/tcp")]
	require.Len(t, bindings, 1)
	assert.Equal(t, "0.0.0.0", bindings[0].HostIP)
	assert.Equal(t, "8501", bindings[0].HostPort)
}

func TestContainerExitedError(t *testing.T) {
	err := ContainerExitedError{ExitCode: 137}
	assert.Equal(t, "container exited with code 137", err.Error())
}
