// Package version provides the graphctl tool version.
package version

// Version is the graphctl tool version.
// Can be overridden at build time with:
//   go build -ldflags "-X github.com/ingo-eichhorst/pygraph/pkg/version.Version=2.0.1"
var Version = "dev"
