//go:build linux

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential doubles the kernel readahead window for f. Failures are
// ignored; the hint only affects throughput.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
