package instance

import (
	"os"

	"github.com/angelmondragon/dealercrm-backend/pkg/env"
)

// GetID returns the worker identifier used as the cron lock owner.
// Falls back to the hostname, then to a fixed default.
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
