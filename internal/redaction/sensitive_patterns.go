package redaction

import (
	"fmt"
	"regexp"
	"strings"
)

// SensitivePatterns contains compiled patterns for detecting sensitive information
type SensitivePatterns struct {
	// AllowedEnvVars contains environment variable names that are safe to log
	AllowedEnvVars map[string]bool

	// Individual patterns are combined into a single alternation so each
	// check costs one regex match instead of one per pattern
	combinedCredentialPattern *regexp.Regexp
	combinedEnvVarPattern     *regexp.Regexp
}

// DefaultSensitivePatterns returns a default set of sensitive patterns
func DefaultSensitivePatterns() *SensitivePatterns {
	// Common credential patterns for log keys and values
	credentialPatterns := []string{
		`(?i)(password|token|secret|key|api_key)`,
		`(?i)passphrase`,
		`(?i)aws_access_key_id`,
		`(?i)aws_secret_access_key`,
		`(?i)aws_session_token`,
		`(?i)google_application_credentials`,
		`(?i)gcp_service_account_key`,
		`(?i)github_token`,
		`(?i)gitlab_token`,
		`(?i)bearer`,
		`(?i)basic`,
		`(?i)authorization`,
	}

	// Environment variable patterns (for task environment logging)
	envVarPatterns := []string{
		`(?i).*PASSWORD.*`,
		`(?i).*PASSPHRASE.*`,
		`(?i).*SECRET.*`,
		`(?i).*TOKEN.*`,
		`(?i).*KEY.*`,
		`(?i).*API.*`,
		`(?i).*CREDENTIAL.*`,
		`(?i).*AUTH.*`,
	}

	// Common safe environment variables
	allowedEnvVars := map[string]bool{
		"PATH":              true,
		"HOME":              true,
		"USER":              true,
		"LANG":              true,
		"SHELL":             true,
		"TERM":              true,
		"PWD":               true,
		"OLDPWD":            true,
		"HOSTNAME":          true,
		"LOGNAME":           true,
		"TZ":                true,
		"DISPLAY":           true,
		"TMPDIR":            true,
		"EDITOR":            true,
		"PAGER":             true,
		"RUNNER_REMOTE_TMP": true,
	}

	sp := &SensitivePatterns{
		AllowedEnvVars: allowedEnvVars,
	}

	// The default patterns are static, so compilation cannot fail at runtime
	if err := sp.buildCombinedPatterns(credentialPatterns, envVarPatterns); err != nil {
		panic(err)
	}

	return sp
}

// buildCombinedPatterns compiles the given pattern lists into single
// alternation regexes
func (sp *SensitivePatterns) buildCombinedPatterns(credentialPatterns, envVarPatterns []string) error {
	combined, err := combinePatterns(credentialPatterns)
	if err != nil {
		return err
	}
	sp.combinedCredentialPattern = combined

	combined, err = combinePatterns(envVarPatterns)
	if err != nil {
		return err
	}
	sp.combinedEnvVarPattern = combined

	return nil
}

// combinePatterns joins pattern strings into one alternation and compiles it.
// Each pattern is wrapped in a non-capturing group so inline flags stay local.
func combinePatterns(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	grouped := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		grouped = append(grouped, "(?:"+pattern+")")
	}

	combined := strings.Join(grouped, "|")
	re, err := regexp.Compile(combined)
	if err != nil {
		return nil, fmt.Errorf("failed to compile combined pattern %q: %w", combined, err)
	}
	return re, nil
}

// IsSensitiveKey checks if a key (e.g., log attribute key) contains sensitive information
func (sp *SensitivePatterns) IsSensitiveKey(key string) bool {
	if sp.combinedCredentialPattern == nil {
		return false
	}
	return sp.combinedCredentialPattern.MatchString(key)
}

// IsSensitiveValue checks if a value contains sensitive information
func (sp *SensitivePatterns) IsSensitiveValue(value string) bool {
	if sp.combinedCredentialPattern == nil {
		return false
	}
	return sp.combinedCredentialPattern.MatchString(value)
}

// IsSensitiveEnvVar checks if an environment variable name is sensitive
func (sp *SensitivePatterns) IsSensitiveEnvVar(name string) bool {
	// Check if it's explicitly allowed
	upperName := strings.ToUpper(name)
	if sp.AllowedEnvVars[upperName] {
		return false
	}

	if sp.combinedEnvVarPattern == nil {
		return false
	}
	return sp.combinedEnvVarPattern.MatchString(upperName)
}

// DefaultKeyValuePatterns returns default keys for key=value redaction
func DefaultKeyValuePatterns() []string {
	return []string{
		// API keys, tokens, passwords (common patterns)
		"password",
		"passphrase",
		"token",
		"key",
		"secret",
		"api_key",

		// Environment variable assignments that might contain secrets
		"_PASSWORD",
		"_TOKEN",
		"_KEY",
		"_SECRET",

		// Common credential patterns (will be handled specially)
		"Bearer ",
		"Basic ",
		// Header-style pattern (colon redaction handles both with/without space)
		"Authorization: ",
	}
}
