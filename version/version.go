package version

// Version is a build-time variable. The value is overridden by ldflags.
var Version = "dev"
