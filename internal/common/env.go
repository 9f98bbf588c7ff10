//nolint:revive // common is an appropriate name for shared utilities package
package common

import "strings"

// ParseEnvVariable splits an environment entry in KEY=VALUE form. Entries
// without an equals sign or with an empty key are rejected; an empty value
// ("KEY=") is valid.
func ParseEnvVariable(env string) (key, value string, ok bool) {
	key, value, found := strings.Cut(env, "=")
	if !found || key == "" {
		return "", "", false
	}
	return key, value, true
}
