package errorutil

import (
	"fmt"
	"strings"
)

// Coordinates holds positional information (stream, segment, LSN) used in
// error formatting across the cstorewal packages. Nil fields are omitted.
type Coordinates struct {
	DatabaseID *int64
	TableID    *int64

	// Segment is the segment file name the error refers to.
	Segment *string

	LSN *int64
}

// FormatCoordinates returns "db=X table=Y seg=Z lsn=N" with only the set
// fields, or "" when none are set.
func (c *Coordinates) FormatCoordinates() string {
	if c == nil {
		return ""
	}

	var parts []string
	if c.DatabaseID != nil {
		parts = append(parts, fmt.Sprintf("db=%d", *c.DatabaseID))
	}
	if c.TableID != nil {
		parts = append(parts, fmt.Sprintf("table=%d", *c.TableID))
	}
	if c.Segment != nil && *c.Segment != "" {
		parts = append(parts, "seg="+*c.Segment)
	}
	if c.LSN != nil {
		parts = append(parts, fmt.Sprintf("lsn=%d", *c.LSN))
	}
	return strings.Join(parts, " ")
}

// String implements the Stringer interface for Coordinates.
func (c *Coordinates) String() string {
	return c.FormatCoordinates()
}

// Stream builds coordinates for a (database, table) pair and optional segment.
func Stream(databaseID, tableID int64, segment string) *Coordinates {
	c := &Coordinates{DatabaseID: &databaseID, TableID: &tableID}
	if segment != "" {
		c.Segment = &segment
	}
	return c
}

// WithLSN returns a copy of c carrying lsn.
func (c *Coordinates) WithLSN(lsn int64) *Coordinates {
	out := Coordinates{}
	if c != nil {
		out = *c
	}
	out.LSN = &lsn
	return &out
}
