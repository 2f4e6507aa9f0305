// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/doeshing/cligent-go/internal/version.Version=v0.3.0"
package version

// Build metadata. Commit and BuildDate stay empty in development builds.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
