// Package env reads the few settings needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces the service variables.
const Prefix = "DEALERCRM_"

// Get returns DEALERCRM_<key>, then the bare key, then fallback. Values are
// trimmed; blank counts as unset.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, Prefix)
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
