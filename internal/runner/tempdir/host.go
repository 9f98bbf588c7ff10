package tempdir

// Host is the connection-side surface the temp subsystem operates on. It is
// implemented by connection.Connection; the subsystem itself never owns
// connections, it only attaches temp state to them.
type Host interface {
	// ID returns the stable connection identifier.
	ID() string

	// States returns the host's per-privilege-context temp state map.
	States() *StateMap

	// Overrides returns the host's temp path resolution configuration.
	Overrides() Overrides
}

// Overrides carries the per-connection configuration consulted before the
// built-in candidate locations.
type Overrides struct {
	// BasePath is an explicit parent directory for temp bases. When set it
	// is the first candidate tried.
	BasePath string

	// EnvVar names the environment variable consulted as a parent location
	// override. Empty selects the default variable name.
	EnvVar string
}
