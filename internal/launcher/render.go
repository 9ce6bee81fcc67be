package launcher

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/crewhub/workspace/consts"
)

// DockerfileName is the name the rendered recipe gets inside the build
// context tarball.
const DockerfileName = "Dockerfile"

// RenderDockerfile emits the build recipe. Layer order is load-bearing:
// the dependency manifest is copied and installed before the application
// code, so code-only changes reuse the dependency layers.
func (s *Spec) RenderDockerfile() string {
	var b strings.Builder

	fmt.Fprintf(&b, "FROM %s\n\n", s.Build.BaseImage)

	if len(s.Build.SystemPackages) > 0 {
		packages := append([]string(nil), s.Build.SystemPackages...)
		sort.Strings(packages)
		fmt.Fprintf(&b,
			"RUN apt-get update && apt-get install -y --no-install-recommends %s && rm -rf /var/lib/apt/lists/*\n\n",
			strings.Join(packages, " "))
	}

	for _, kv := range envLines(s.Build.Env) {
		fmt.Fprintf(&b, "ENV %s\n", kv)
	}
	if len(s.Build.Env) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "WORKDIR %s\n\n", s.Build.WorkingDir)

	fmt.Fprintf(&b, "COPY %s ./\n", s.Build.DependencyManifest)
	fmt.Fprintf(&b, "RUN %s\n\n", s.Build.InstallCommand)

	b.WriteString("COPY . .\n\n")

	fmt.Fprintf(&b, "EXPOSE %d\n\n", s.Run.ExposedPort)

	fmt.Fprintf(&b,
		"HEALTHCHECK --interval=30s --timeout=5s --retries=3 CMD curl -f http://localhost:%d%s || exit 1\n\n",
		s.Run.ExposedPort, consts.HealthcheckPath)

	b.WriteString("CMD " + jsonArgv(s.Run.Command()) + "\n")
	return b.String()
}

// jsonArgv renders exec-form CMD, which is also valid JSON.
func jsonArgv(argv []string) string {
	raw, _ := json.Marshal(argv)
	return string(raw)
}

func envLines(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s=%q", key, env[key]))
	}
	return lines
}
