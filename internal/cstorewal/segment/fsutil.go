package segment

import "os"

// syncDir fsyncs a directory so a create or rename inside it is durable.
func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	return d.Sync()
}
