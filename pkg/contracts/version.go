// Package contracts holds the types shared between the server, the command
// line tool and the dashboard.
package contracts

// Version is the release of the metrolog binaries.
const Version = "0.3.0"

// Contract revisions reported by /api/version. Bump DocumentFormat when the
// registry export document changes shape; previously exported files must
// keep importing.
const (
	APIVersion     = "v1"
	DocumentFormat = "v1"
)
