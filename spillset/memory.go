package spillset

import (
	"math"
	"runtime/debug"

	"github.com/pbnjay/memory"
)

// MinBufferBytes is the floor applied to the default pre-sort buffer.
var MinBufferBytes int64 = 100 * 1024 * 1024

// DefaultBufferBytes is a twentieth of the memory limit: GOMEMLIMIT when one
// is set, otherwise physical memory.
func DefaultBufferBytes() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		if total := memory.TotalMemory(); total > 0 && total < math.MaxInt64 {
			limit = int64(total)
		} else {
			limit = 0
		}
	}
	return max(limit/20, MinBufferBytes)
}
