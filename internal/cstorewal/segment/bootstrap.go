package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/julianstephens/go-utils/helpers"
)

// Resolution describes a segment after bootstrapping.
type Resolution struct {
	// Created is true when this call created the file.
	Created bool
	// Size is the file size when resolved (0 for a new file).
	Size int64
	Name string
	Path string
}

// Bootstrapper opens or creates segment files under a root directory.
type Bootstrapper struct {
	root string
}

// NewBootstrapper returns a bootstrapper for root.
func NewBootstrapper(root string) *Bootstrapper {
	return &Bootstrapper{root: root}
}

// Root returns the WAL root directory.
func (b *Bootstrapper) Root() string {
	return b.root
}

// Exists reports whether segment name of id is on disk.
func (b *Bootstrapper) Exists(id StreamID, name string) bool {
	if name == "" {
		return false
	}
	return helpers.Exists(id.Path(b.root, name))
}

// Resolve prepares segment name of stream id.
//
// With verify the file is created (parent directories included) when absent;
// a newly created file and its directory are fsynced. Without verify the
// caller guarantees the file exists and only its size is read.
func (b *Bootstrapper) Resolve(id StreamID, name string, verify bool) (Resolution, error) {
	if !IsValidName(name) {
		return Resolution{}, wrapSegmentErr("resolve", ErrInvalidName, id, name, nil)
	}

	res := Resolution{Name: name, Path: id.Path(b.root, name)}
	if !verify {
		size, err := fileSize(res.Path)
		if err != nil {
			return Resolution{}, wrapSegmentErr("stat", ErrSegmentStat, id, name, err)
		}
		res.Size = size
		return res, nil
	}

	dir := id.Dir(b.root)
	if err := helpers.Ensure(dir, true); err != nil {
		return Resolution{}, wrapSegmentErr("resolve", ErrStreamDir, id, name, err)
	}

	f, err := os.OpenFile(res.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec
	if errors.Is(err, fs.ErrExist) {
		size, err := fileSize(res.Path)
		if err != nil {
			return Resolution{}, wrapSegmentErr("stat", ErrSegmentStat, id, name, err)
		}
		res.Size = size
		return res, nil
	}
	if err != nil {
		return Resolution{}, wrapSegmentErr("create", ErrSegmentCreate, id, name, err)
	}

	syncErr := f.Sync()
	closeErr := f.Close()
	if err := errors.Join(syncErr, closeErr); err != nil {
		return Resolution{}, wrapSegmentErr("fsync", ErrSegmentSync, id, name, err)
	}
	if err := syncDir(dir); err != nil {
		return Resolution{}, wrapSegmentErr("fsync", ErrSegmentSync, id, name, err)
	}

	res.Created = true
	return res, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}
