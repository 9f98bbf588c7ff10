//nolint:revive // common is an appropriate name for shared utilities package
package common

import "os"

// UnknownHostFallback is reported when the hostname cannot be determined.
const UnknownHostFallback = "unknown-host"

// osHostname points to os.Hostname so tests can exercise the failure path.
var osHostname = os.Hostname

// GetHostname returns the machine's hostname, or UnknownHostFallback when
// it cannot be determined. Log output always carries some host identity.
func GetHostname() string {
	hostname, err := osHostname()
	if err != nil {
		return UnknownHostFallback
	}
	return hostname
}
