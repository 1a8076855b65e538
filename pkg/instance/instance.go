// Package instance names the running process in logs and lock owners.
package instance

import (
	"os"

	"github.com/dropmart/dropmart-backend/pkg/env"
)

// GetID returns DROPMART_INSTANCE_ID, then the platform dyno name, then the
// hostname, then "local".
func GetID() string {
	if id, ok := env.First("DROPMART_INSTANCE_ID", "DYNO"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
