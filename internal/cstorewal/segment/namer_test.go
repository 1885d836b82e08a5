package segment_test

import (
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
)

func TestNamerFormat(t *testing.T) {
	ts := time.Date(2022, 11, 1, 14, 50, 20, 0, time.UTC)
	n := segment.NewNamer(func() time.Time { return ts })
	id := segment.StreamID{DatabaseID: 1, TableID: 2}

	assert.Equal(t, "wal-20221101145020-00", n.Next(id))
	assert.Equal(t, "wal-20221101145020-01", n.Next(id))
	assert.Equal(t, segment.NameLength, len(n.Next(id)))
}

func TestNamerCountersArePerStream(t *testing.T) {
	ts := time.Date(2022, 11, 1, 14, 50, 20, 0, time.UTC)
	n := segment.NewNamer(func() time.Time { return ts })
	a := segment.StreamID{DatabaseID: 1, TableID: 1}
	b := segment.StreamID{DatabaseID: 1, TableID: 2}

	assert.Equal(t, "wal-20221101145020-00", n.Next(a))
	assert.Equal(t, "wal-20221101145020-01", n.Next(a))
	assert.Equal(t, "wal-20221101145020-00", n.Next(b))
}

func TestNamerCounterWrapsAtHundred(t *testing.T) {
	ts := time.Date(2022, 11, 1, 14, 50, 20, 0, time.UTC)
	n := segment.NewNamer(func() time.Time { return ts })
	id := segment.StreamID{DatabaseID: 3, TableID: 3}

	for i := 0; i < 100; i++ {
		n.Next(id)
	}
	assert.Equal(t, "wal-20221101145020-00", n.Next(id))
}

func TestNamerConcurrentFirstUse(t *testing.T) {
	ts := time.Date(2022, 11, 1, 14, 50, 20, 0, time.UTC)
	n := segment.NewNamer(func() time.Time { return ts })
	id := segment.StreamID{DatabaseID: 9, TableID: 9}

	var (
		mu    sync.Mutex
		names = map[string]int{}
		wg    sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := n.Next(id)
			mu.Lock()
			names[name]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, len(names))
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"wal-20221101145020-00", true},
		{"wal-20221101145020-99", true},
		{segment.NoPredecessor, false},
		{"", false},
		{"wal-2022110114502-00", false},
		{"wal-20221101145020_00", false},
		{"log-20221101145020-00", false},
		{"wal-2022110114502x-00", false},
		{"wal-20221101145020-0a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, segment.IsValidName(tt.name))
		})
	}
}

func TestNoPredecessorWidth(t *testing.T) {
	assert.Equal(t, 21, len(segment.NoPredecessor))
	assert.Equal(t, "---------------------", segment.NoPredecessor)
}
