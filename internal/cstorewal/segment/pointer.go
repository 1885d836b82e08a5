package segment

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/julianstephens/go-utils/helpers"
)

// PointerFileName is the file recording the active segment of a stream.
const PointerFileName = "CURRENT"

// Pointer manages the CURRENT file of one stream. If CURRENT exists the
// segment it names must exist.
type Pointer struct {
	root   string
	id     StreamID
	closed atomic.Bool
}

// NewPointer returns the pointer manager for id under root.
func NewPointer(root string, id StreamID) *Pointer {
	return &Pointer{root: root, id: id}
}

// Path returns <root>/<databaseId>/<tableId>/CURRENT.
func (p *Pointer) Path() string {
	return p.id.Path(p.root, PointerFileName)
}

// Exists reports whether CURRENT is present.
func (p *Pointer) Exists() bool {
	return helpers.Exists(p.Path())
}

// Read returns the segment name recorded in the first line of CURRENT.
func (p *Pointer) Read() (string, error) {
	data, err := os.ReadFile(p.Path()) //nolint:gosec
	if err != nil {
		return "", wrapSegmentErr("pointer_read", ErrPointerRead, p.id, "", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	name := ""
	if sc.Scan() {
		name = strings.TrimSpace(sc.Text())
	}
	if name == "" {
		return "", wrapSegmentErr("pointer_read", ErrPointerEmpty, p.id, "", nil)
	}
	if !IsValidName(name) {
		return "", wrapSegmentErr("pointer_read", ErrInvalidName, p.id, name, nil)
	}
	return name, nil
}

// Write replaces CURRENT with name. The file is written to a temp file and
// renamed over CURRENT, then the stream directory is fsynced.
func (p *Pointer) Write(name string) error {
	if !IsValidName(name) {
		return wrapSegmentErr("pointer_write", ErrInvalidName, p.id, name, nil)
	}

	dir := p.id.Dir(p.root)
	if err := helpers.Ensure(dir, true); err != nil {
		return wrapSegmentErr("pointer_write", ErrStreamDir, p.id, name, err)
	}
	if err := helpers.AtomicFileWrite(p.Path(), []byte(name+"\n")); err != nil {
		return wrapSegmentErr("pointer_write", ErrPointerWrite, p.id, name, err)
	}
	if err := syncDir(filepath.Dir(p.Path())); err != nil {
		return wrapSegmentErr("pointer_write", ErrPointerWrite, p.id, name, err)
	}
	return nil
}

// Close releases the manager. It holds no open files, so this only marks it.
func (p *Pointer) Close() error {
	p.closed.Store(true)
	return nil
}
