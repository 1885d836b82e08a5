package testutil

import (
	"os"
	"path/filepath"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/cstorewal/config"
)

// SetupRoot creates a WAL root under dir with a default config file pointing
// at it, and returns the options loaded back from that file.
func SetupRoot(t *testing.T, dir string) cstorewal.Options {
	t.Helper()
	root := filepath.Join(dir, "wal")
	tst.RequireNoError(t, os.MkdirAll(root, 0o750))

	path := config.Path(dir)
	tst.RequireNoError(t, config.Create(path))

	f, err := config.Load(path)
	tst.RequireNoError(t, err)
	f.Root = root
	tst.RequireNoError(t, f.Save(path))

	f, err = config.Load(path)
	tst.RequireNoError(t, err)
	return f.Options()
}
