//go:build windows

package tempdir

// accessWritable has no access(2) equivalent on Windows; the probe write in
// Resolver.probe is the only writability check there.
func accessWritable(string) error {
	return nil
}
