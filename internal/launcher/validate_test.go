package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePortMismatch(t *testing.T) {
	spec := DefaultSpec()
	spec.Run.ExposedPort = 8502 // flag still says 8501
	err := spec.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPortMismatch)
}

func TestValidateMissingFlag(t *testing.T) {
	spec := DefaultSpec()
	delete(spec.Run.Flags, "server.headless")
	assert.ErrorContains(t, spec.Validate(), "server.headless")
}

func TestValidateNonBooleanFlag(t *testing.T) {
	spec := DefaultSpec()
	spec.Run.Flags["server.enableCORS"] = "maybe"
	assert.ErrorContains(t, spec.Validate(), "server.enableCORS")
}

func TestValidateRelativeWorkDir(t *testing.T) {
	spec := DefaultSpec()
	spec.Build.WorkingDir = "app"
	assert.ErrorContains(t, spec.Validate(), "working_directory")
}

func TestValidateManifestEscape(t *testing.T) {
	spec := DefaultSpec()
	spec.Build.DependencyManifest = "../requirements.txt"
	assert.ErrorContains(t, spec.Validate(), "escapes the build context")
}

func TestValidateEmptyEntrypoint(t *testing.T) {
	spec := DefaultSpec()
	spec.Run.Entrypoint = nil
	assert.ErrorContains(t, spec.Validate(), "entrypoint")
}

func TestCheckContext(t *testing.T) {
	dir := t.TempDir()
	spec := DefaultSpec()
	spec.Context = dir

	err := spec.CheckContext()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingManifest)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("streamlit\n"), 0o644))
	assert.NoError(t, spec.CheckContext())
}

func TestPostureWarnings(t *testing.T) {
	spec := DefaultSpec()
	warnings := spec.PostureWarnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "cross-origin protection is disabled")
	assert.Contains(t, warnings[1], "forgery protection is disabled")

	spec.Run.Flags["server.enableCORS"] = "true"
	spec.Run.Flags["server.enableXsrfProtection"] = "true"
	assert.Empty(t, spec.PostureWarnings())
}
