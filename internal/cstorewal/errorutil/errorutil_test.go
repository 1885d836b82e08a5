package errorutil_test

import (
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/cstorewal/internal/cstorewal/errorutil"
)

func TestFormatCoordinatesNil(t *testing.T) {
	var c *errorutil.Coordinates
	tst.RequireDeepEqual(t, c.FormatCoordinates(), "")
	tst.RequireDeepEqual(t, (&errorutil.Coordinates{}).String(), "")
}

func TestFormatCoordinatesStream(t *testing.T) {
	c := errorutil.Stream(7, 42, "wal-20240101120000-03")
	tst.RequireDeepEqual(t, c.String(), "db=7 table=42 seg=wal-20240101120000-03")
}

func TestFormatCoordinatesWithLSN(t *testing.T) {
	base := errorutil.Stream(1, 2, "")
	c := base.WithLSN(99)
	tst.RequireDeepEqual(t, c.String(), "db=1 table=2 lsn=99")
	// base is not modified
	tst.RequireDeepEqual(t, base.String(), "db=1 table=2")
}
