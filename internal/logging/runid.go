package logging

import "github.com/oklog/ulid/v2"

// GenerateRunID generates a new ULID for run identification. ULIDs sort
// lexicographically by creation time, so per-run log files list in
// chronological order by name.
func GenerateRunID() string {
	return ulid.Make().String()
}
