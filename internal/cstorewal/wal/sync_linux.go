//go:build linux

package wal

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncData flushes file data to stable storage without forcing a metadata update.
func syncData(f *os.File) error {
	for {
		err := unix.Fdatasync(int(f.Fd())) //nolint:gosec
		if err != unix.EINTR {
			return err
		}
	}
}
