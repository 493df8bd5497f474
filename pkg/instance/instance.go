// Package instance identifies the running process for log correlation.
package instance

import "github.com/reelkeep/reelkeep-backend/pkg/env"

// GetID returns the platform-assigned instance identifier or a local default.
func GetID() string {
	return env.Get("DYNO", "local")
}
