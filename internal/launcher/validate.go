package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crewhub/workspace/consts"
	"github.com/crewhub/workspace/internal/gerrors"
)

var (
	ErrPortMismatch    = errors.New("exposed port does not match the server.port flag")
	ErrMissingManifest = errors.New("dependency manifest not found in build context")
)

// Validate checks the spec's static invariants. It does not touch the
// filesystem; see CheckContext for that.
func (s *Spec) Validate() error {
	if s.Image == "" {
		return gerrors.New("image reference is empty")
	}
	if s.Build.BaseImage == "" {
		return gerrors.New("build.base_image is empty")
	}
	if s.Build.DependencyManifest == "" {
		return gerrors.New("build.dependency_manifest is empty")
	}
	if strings.Contains(s.Build.DependencyManifest, "..") {
		return gerrors.Newf("build.dependency_manifest escapes the build context: %q", s.Build.DependencyManifest)
	}
	if s.Build.InstallCommand == "" {
		return gerrors.New("build.install_command is empty")
	}
	if !filepath.IsAbs(s.Build.WorkingDir) {
		return gerrors.Newf("build.working_directory must be absolute: %q", s.Build.WorkingDir)
	}
	if len(s.Run.Entrypoint) == 0 {
		return gerrors.New("run.entrypoint is empty")
	}
	if s.Run.ExposedPort < 1 || s.Run.ExposedPort > 65535 {
		return gerrors.Newf("run.exposed_port out of range: %d", s.Run.ExposedPort)
	}

	for _, name := range []string{consts.FlagServerAddress, consts.FlagServerHeadless, consts.FlagEnableCORS, consts.FlagEnableXsrf} {
		if _, ok := s.Run.Flags[name]; !ok {
			return gerrors.Newf("flag %s is not set", name)
		}
	}
	for _, name := range []string{consts.FlagServerHeadless, consts.FlagEnableCORS, consts.FlagEnableXsrf} {
		if _, err := strconv.ParseBool(s.Run.Flags[name]); err != nil {
			return gerrors.Newf("flag %s is not a boolean: %q", name, s.Run.Flags[name])
		}
	}

	// the build-ordering and port-match invariants
	boundPort, err := s.Run.BoundPort()
	if err != nil {
		return err
	}
	if boundPort != s.Run.ExposedPort {
		return gerrors.Wrap(fmt.Errorf("%w: exposed %d, bound %d", ErrPortMismatch, s.Run.ExposedPort, boundPort))
	}
	return nil
}

// CheckContext verifies the build context directory: it must exist and
// contain the dependency manifest.
func (s *Spec) CheckContext() error {
	info, err := os.Stat(s.Context)
	if err != nil {
		return gerrors.Wrap(err)
	}
	if !info.IsDir() {
		return gerrors.Newf("build context is not a directory: %q", s.Context)
	}
	if _, err := os.Stat(filepath.Join(s.Context, s.Build.DependencyManifest)); err != nil {
		return gerrors.Wrap(fmt.Errorf("%w: %s", ErrMissingManifest, s.Build.DependencyManifest))
	}
	return nil
}

// PostureWarnings lists the trust decisions the spec makes that widen the
// deployment's exposure profile. They are legal, but operators should see
// them every time.
func (s *Spec) PostureWarnings() []string {
	warnings := make([]string, 0, 2)
	if enabled, err := strconv.ParseBool(s.Run.Flags[consts.FlagEnableCORS]); err == nil && !enabled {
		warnings = append(warnings,
			fmt.Sprintf("%s=false: cross-origin protection is disabled, any site may call this server", consts.FlagEnableCORS))
	}
	if enabled, err := strconv.ParseBool(s.Run.Flags[consts.FlagEnableXsrf]); err == nil && !enabled {
		warnings = append(warnings,
			fmt.Sprintf("%s=false: cross-site request forgery protection is disabled", consts.FlagEnableXsrf))
	}
	return warnings
}
