package spillset

import (
	"bufio"
	"container/heap"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/willf/bloom"
)

const mergedFileName = "merged.dat"

// run is a sorted, de-duplicated file of big-endian fingerprints.
type run struct {
	path string
	n    int
}

// spill sorts the buffer and writes it out as a new run.
func (s *Set) spill() error {
	if len(s.buf) == 0 {
		return nil
	}
	slices.Sort(s.buf)
	s.buf = slices.Compact(s.buf)

	path := filepath.Join(s.dir, fmt.Sprintf("run-%05d.dat", len(s.runs)))
	if err := writeFingerprints(path, s.buf); err != nil {
		return errors.Wrapf(err, "spilling run %v", path)
	}
	s.runs = append(s.runs, run{path: path, n: len(s.buf)})
	s.config.Logger.WithField("run", path).WithField("entries", len(s.buf)).Debug("Spilled run")

	s.buf = s.buf[:0]
	return nil
}

func writeFingerprints(path string, fps []uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<20)
	var b [8]byte
	for _, fp := range fps {
		binary.BigEndian.PutUint64(b[:], fp)
		if _, err := w.Write(b[:]); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// finalize spills what remains, merges every run into a single sorted file
// alongside a bloom filter, and maps the result.
func (s *Set) finalize() error {
	if err := s.spill(); err != nil {
		return err
	}
	s.buf = nil

	upper := 0
	for _, r := range s.runs {
		upper += r.n
	}
	filter := bloom.NewWithEstimates(uint(max(upper, 1)), s.config.FalsePositiveRate)

	path := filepath.Join(s.dir, mergedFileName)
	n, err := mergeRuns(s.runs, path, filter)
	if err != nil {
		return errors.Wrap(err, "merging runs")
	}
	for _, r := range s.runs {
		if err := os.Remove(r.path); err != nil {
			return errors.Wrapf(err, "removing run %v", r.path)
		}
	}
	s.config.Logger.WithField("runs", len(s.runs)).WithField("entries", n).Debug("Merged runs")
	s.runs = nil

	if n > 0 {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "opening merged file")
		}
		data, err := mmap.MapRegion(f, n*8, mmap.RDONLY, 0, 0)
		if err != nil {
			f.Close()
			return errors.Wrap(err, "mmap merged file")
		}
		s.file = f
		s.data = data
	}
	s.filter = filter
	s.n = n
	s.state.Store(int32(Ready))
	return nil
}

// runCursor is the head of one open run during a merge.
type runCursor struct {
	r   *bufio.Reader
	f   *os.File
	cur uint64
}

func (c *runCursor) advance() (bool, error) {
	var b [8]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, errors.Wrapf(err, "reading %v", c.f.Name())
	}
	c.cur = binary.BigEndian.Uint64(b[:])
	return true, nil
}

// cursorHeap orders open runs by their current head.
type cursorHeap struct {
	Cursors []*runCursor
}

func (ch cursorHeap) Len() int           { return len(ch.Cursors) }
func (ch cursorHeap) Less(i, j int) bool { return ch.Cursors[i].cur < ch.Cursors[j].cur }
func (ch cursorHeap) Swap(i, j int)      { ch.Cursors[i], ch.Cursors[j] = ch.Cursors[j], ch.Cursors[i] }

func (ch *cursorHeap) Push(x interface{}) {
	ch.Cursors = append(ch.Cursors, x.(*runCursor))
}

func (ch *cursorHeap) Pop() interface{} {
	old := ch.Cursors
	n := len(old)
	x := old[n-1]
	ch.Cursors = old[0 : n-1]
	return x
}

// mergeRuns k-way merges the runs into path, skipping duplicates, and adds
// every distinct fingerprint to filter.  It returns the distinct count.
func mergeRuns(runs []run, path string, filter *bloom.BloomFilter) (n int, err error) {
	ch := &cursorHeap{}
	defer func() {
		for _, c := range ch.Cursors {
			c.f.Close()
		}
	}()
	for _, r := range runs {
		f, err := os.Open(r.path)
		if err != nil {
			return 0, err
		}
		c := &runCursor{r: bufio.NewReaderSize(f, 256*1024), f: f}
		ok, err := c.advance()
		if err != nil {
			f.Close()
			return 0, err
		}
		if !ok {
			f.Close()
			continue
		}
		ch.Cursors = append(ch.Cursors, c)
	}
	heap.Init(ch)

	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriterSize(out, 1<<20)

	var (
		b    [8]byte
		last uint64
	)
	for ch.Len() > 0 {
		c := ch.Cursors[0]
		if fp := c.cur; n == 0 || fp != last {
			binary.BigEndian.PutUint64(b[:], fp)
			if _, err := w.Write(b[:]); err != nil {
				out.Close()
				return 0, err
			}
			filter.Add(b[:])
			last = fp
			n++
		}
		ok, err := c.advance()
		if err != nil {
			out.Close()
			return 0, err
		}
		if ok {
			heap.Fix(ch, 0)
			continue
		}
		c.f.Close()
		heap.Pop(ch)
	}

	if err := w.Flush(); err != nil {
		out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return n, nil
}
