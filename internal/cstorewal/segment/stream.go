package segment

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// StreamID identifies a logical log: one (database, table) pair.
type StreamID struct {
	DatabaseID int64
	TableID    int64
}

func (id StreamID) String() string {
	return fmt.Sprintf("%d/%d", id.DatabaseID, id.TableID)
}

// Dir returns <root>/<databaseId>/<tableId>.
func (id StreamID) Dir(root string) string {
	return filepath.Join(root, strconv.FormatInt(id.DatabaseID, 10), strconv.FormatInt(id.TableID, 10))
}

// Path returns the path of the named file inside the stream directory.
func (id StreamID) Path(root, name string) string {
	return filepath.Join(id.Dir(root), name)
}
