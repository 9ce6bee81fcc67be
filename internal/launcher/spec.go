// Package launcher turns a declarative launch spec (how the dashboard
// image is built and how its container is started) into a rendered
// Dockerfile, a validated command line, and a running container.
package launcher

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/crewhub/workspace/consts"
	"github.com/crewhub/workspace/internal/gerrors"
)

// BuildSpec describes how the image is assembled. It is consumed once at
// image-build time and never mutates.
type BuildSpec struct {
	BaseImage      string   `yaml:"base_image"`
	SystemPackages []string `yaml:"system_packages"`
	// DependencyManifest is copied and installed before application code,
	// so dependency layers survive code-only rebuilds.
	DependencyManifest string `yaml:"dependency_manifest"`
	// InstallCommand installs the declared dependencies. The manifest is
	// opaque to the launcher; only this command knows how to consume it.
	InstallCommand string            `yaml:"install_command"`
	WorkingDir     string            `yaml:"working_directory"`
	Env            map[string]string `yaml:"env"`
}

// RunSpec describes the command line the container starts with. It is
// consumed once at container-start time and never mutates.
type RunSpec struct {
	ExposedPort int      `yaml:"exposed_port"`
	Entrypoint  []string `yaml:"entrypoint"`
	// Flags are appended to the entrypoint as --name=value. The five
	// server flags are always present; see DefaultFlags.
	Flags map[string]string `yaml:"flags"`
	Env   map[string]string `yaml:"env"`
}

// Spec is one launchable deployment: an image reference plus its build and
// run halves.
type Spec struct {
	Image   string    `yaml:"image"`
	Context string    `yaml:"context"`
	Build   BuildSpec `yaml:"build"`
	Run     RunSpec   `yaml:"run"`
}

// DefaultFlags is the launch posture of the containerized deployment:
// fixed port on all interfaces, no interactive browser, cross-origin and
// XSRF safeguards off. Changing the last two changes the deployment's
// exposure profile; keep them explicit.
func DefaultFlags() map[string]string {
	return map[string]string{
		consts.FlagServerPort:     strconv.Itoa(consts.DefaultServerPort),
		consts.FlagServerAddress:  consts.DefaultServerAddress,
		consts.FlagServerHeadless: "true",
		consts.FlagEnableCORS:     "false",
		consts.FlagEnableXsrf:     "false",
	}
}

func DefaultSpec() *Spec {
	return &Spec{
		Image:   "crewhub/workspace:latest",
		Context: ".",
		Build: BuildSpec{
			BaseImage:          "python:3.11-slim",
			SystemPackages:     []string{"curl"},
			DependencyManifest: consts.DependencyManifestName,
			InstallCommand:     "pip install --no-cache-dir -r " + consts.DependencyManifestName,
			WorkingDir:         consts.ContainerWorkDir,
		},
		Run: RunSpec{
			ExposedPort: consts.DefaultServerPort,
			Entrypoint:  []string{"streamlit", "run", "main.py"},
			Flags:       DefaultFlags(),
		},
	}
}

// Load reads a spec file and fills in defaults for everything the file
// leaves out. Flags the file sets override defaults key by key.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, gerrors.Wrap(err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Spec, error) {
	var fromFile Spec
	if err := yaml.UnmarshalStrict(raw, &fromFile); err != nil {
		return nil, gerrors.Wrap(err)
	}
	spec := DefaultSpec()
	if fromFile.Image != "" {
		spec.Image = fromFile.Image
	}
	if fromFile.Context != "" {
		spec.Context = fromFile.Context
	}
	mergeBuild(&spec.Build, fromFile.Build)
	mergeRun(&spec.Run, fromFile.Run)
	return spec, nil
}

func mergeBuild(dst *BuildSpec, src BuildSpec) {
	if src.BaseImage != "" {
		dst.BaseImage = src.BaseImage
	}
	if src.SystemPackages != nil {
		dst.SystemPackages = src.SystemPackages
	}
	if src.DependencyManifest != "" {
		dst.DependencyManifest = src.DependencyManifest
	}
	if src.InstallCommand != "" {
		dst.InstallCommand = src.InstallCommand
	}
	if src.WorkingDir != "" {
		dst.WorkingDir = src.WorkingDir
	}
	dst.Env = src.Env
}

func mergeRun(dst *RunSpec, src RunSpec) {
	if src.ExposedPort != 0 {
		dst.ExposedPort = src.ExposedPort
	}
	if src.Entrypoint != nil {
		dst.Entrypoint = src.Entrypoint
	}
	for name, value := range src.Flags {
		dst.Flags[name] = value
	}
	dst.Env = src.Env
}

// canonical order of the server flags on the rendered command line
var flagOrder = []string{
	consts.FlagServerPort,
	consts.FlagServerAddress,
	consts.FlagServerHeadless,
	consts.FlagEnableCORS,
	consts.FlagEnableXsrf,
}

// Command renders the full argv: entrypoint, then the five server flags in
// canonical order, then any extra flags sorted by name.
func (r RunSpec) Command() []string {
	argv := make([]string, 0, len(r.Entrypoint)+len(r.Flags))
	argv = append(argv, r.Entrypoint...)

	seen := make(map[string]bool, len(flagOrder))
	for _, name := range flagOrder {
		if value, ok := r.Flags[name]; ok {
			argv = append(argv, fmt.Sprintf("--%s=%s", name, value))
			seen[name] = true
		}
	}
	extra := make([]string, 0)
	for name := range r.Flags {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		argv = append(argv, fmt.Sprintf("--%s=%s", name, r.Flags[name]))
	}
	return argv
}

// BoundPort is the port the server binds according to the flags, as
// opposed to ExposedPort, which is what the container declares.
func (r RunSpec) BoundPort() (int, error) {
	raw, ok := r.Flags[consts.FlagServerPort]
	if !ok {
		return 0, gerrors.Newf("flag %s is not set", consts.FlagServerPort)
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, gerrors.Newf("flag %s is not an integer: %q", consts.FlagServerPort, raw)
	}
	return port, nil
}

// Hash identifies the build half of the spec for cache bookkeeping.
func (b BuildSpec) Hash() string {
	var buffer bytes.Buffer
	buffer.WriteString(b.BaseImage)
	buffer.WriteString("\n")
	for _, pkg := range b.SystemPackages {
		buffer.WriteString(pkg)
		buffer.WriteString("\n")
	}
	buffer.WriteString(b.DependencyManifest)
	buffer.WriteString("\n")
	buffer.WriteString(b.InstallCommand)
	buffer.WriteString("\n")
	buffer.WriteString(b.WorkingDir)
	buffer.WriteString("\n")
	return fmt.Sprintf("%x", sha256.Sum256(buffer.Bytes()))
}
