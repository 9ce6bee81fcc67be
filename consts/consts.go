package consts

// Defaults for the dashboard server. These mirror the launch flags the
// container passes, so a bare `workspace serve` behaves exactly like the
// containerized deployment.
const (
	DefaultServerPort    = 8501
	DefaultServerAddress = "0.0.0.0"
)

// Server launch flag names. The launcher renders them into the container
// CMD and the server binary consumes the very same names.
const (
	FlagServerPort     = "server.port"
	FlagServerAddress  = "server.address"
	FlagServerHeadless = "server.headless"
	FlagEnableCORS     = "server.enableCORS"
	FlagEnableXsrf     = "server.enableXsrfProtection"
)

// Directories inside the container.
const (
	ContainerWorkDir = "/app"
)

// DependencyManifestName is the file installed before application code is
// copied in, so dependency layers stay cached across code-only rebuilds.
const DependencyManifestName = "requirements.txt"

// HealthcheckPath is probed by the image HEALTHCHECK (via curl) and by the
// launcher while waiting for the server to come up.
const HealthcheckPath = "/api/healthcheck"

// XsrfHeader carries the session token on mutating requests when XSRF
// protection is enabled.
const XsrfHeader = "X-Xsrf-Token"
