package segment

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	NamePrefix = "wal-"

	nameTimeLayout = "20060102150405"

	// NamesPerSecond is how many distinct names one stream gets per clock
	// second before the counter wraps.
	NamesPerSecond = 100

	// NameLength is the fixed width of every segment name: wal-yyyyMMddHHmmss-NN.
	NameLength = len(NamePrefix) + len(nameTimeLayout) + 1 + 2
)

// NoPredecessor is written in a header when the segment has no predecessor.
var NoPredecessor = strings.Repeat("-", NameLength)

// Namer generates segment names. Each stream gets its own rolling counter.
type Namer struct {
	clock    func() time.Time
	counters sync.Map // StreamID -> *atomic.Uint64
}

// NewNamer builds a namer reading clock; nil means time.Now.
func NewNamer(clock func() time.Time) *Namer {
	if clock == nil {
		clock = time.Now
	}
	return &Namer{clock: clock}
}

// Next returns the name for the next segment of id.
func (n *Namer) Next(id StreamID) string {
	c, ok := n.counters.Load(id)
	if !ok {
		c, _ = n.counters.LoadOrStore(id, new(atomic.Uint64))
	}
	seq := c.(*atomic.Uint64).Add(1) - 1
	return fmt.Sprintf("%s%s-%02d", NamePrefix, n.clock().UTC().Format(nameTimeLayout), seq%NamesPerSecond)
}

// DefaultNamer is shared by every stream in the process.
var DefaultNamer = NewNamer(nil)

// IsValidName reports whether name has the wal-yyyyMMddHHmmss-NN shape.
func IsValidName(name string) bool {
	if len(name) != NameLength || !strings.HasPrefix(name, NamePrefix) {
		return false
	}
	rest := name[len(NamePrefix):]
	if rest[len(nameTimeLayout)] != '-' {
		return false
	}
	for i, r := range rest {
		if i == len(nameTimeLayout) {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
