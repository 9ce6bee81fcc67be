package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSliceSorted(t *testing.T) {
	env := New()
	env.Set("B", "2")
	env.Set("A", "1")
	env.AddMap(map[string]string{"C": "3"})
	assert.Equal(t, []string{"A=1", "B=2", "C=3"}, env.ToSlice())
}

func TestNormalize(t *testing.T) {
	env := New()
	env.Set(" my-key ", "v")
	assert.Equal(t, []string{"my_key=v"}, env.ToSlice())
}

func TestPassthrough(t *testing.T) {
	t.Setenv("WORKSPACE_TEST_TOKEN", "abc")
	env := New()
	env.Passthrough("WORKSPACE_TEST_TOKEN", "WORKSPACE_TEST_UNSET")
	assert.Equal(t, []string{"WORKSPACE_TEST_TOKEN=abc"}, env.ToSlice())
}

func TestAddMapOverrides(t *testing.T) {
	env := New()
	env.Set("A", "1")
	env.AddMap(map[string]string{"A": "2"})
	assert.Equal(t, []string{"A=2"}, env.ToSlice())
}
