// Package spillset is a write-once, disk-backed set of 64-bit fingerprints.
//
// Fingerprints are added from any number of goroutines while the set is
// Building.  A single background goroutine buffers them in memory, spilling
// sorted runs to disk whenever the buffer fills.  Finish merges the runs into
// one sorted file, builds a bloom filter over it and memory maps it, after
// which Contains may be called concurrently.
package spillset

import (
	"encoding/binary"
	"os"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/willf/bloom"
)

var (
	ErrNotReady    = errors.New("spill set is not ready for queries")
	ErrNotBuilding = errors.New("spill set is no longer accepting fingerprints")
	ErrClosed      = errors.New("spill set closed")
)

var (
	DefaultQueueSize         = 10000
	DefaultFalsePositiveRate = 0.001
)

type State int32

const (
	Building State = iota
	Finalizing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Finalizing:
		return "finalizing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Config struct {
	Dir               string             // Parent of the transient working directory.  Defaults to os.TempDir().
	BufferBytes       int64              // Pre-sort buffer size.  Defaults to DefaultBufferBytes().
	QueueSize         int                // Capacity of the ingest queue.
	FalsePositiveRate float64            // Bloom filter target.
	Logger            logrus.FieldLogger // Defaults to the logrus standard logger.
}

// message is a queue entry; eof marks the end of input.
type message struct {
	fp  uint64
	eof bool
}

type Set struct {
	config Config
	dir    string
	queue  chan message
	abort  chan struct{}
	done   chan struct{}
	state  atomic.Int32
	err    error
	mu     sync.RWMutex

	// Held for reading by Add from its state check through its send, and for
	// writing by Finish while leaving Building, so no fingerprint lands in
	// the queue behind the terminator.
	sendMu sync.RWMutex

	finishOnce sync.Once
	closeOnce  sync.Once

	// Consumer-owned while Building.
	buf    []uint64
	bufCap int
	runs   []run

	// Populated on entering Ready.
	file   *os.File
	data   mmap.MMap
	filter *bloom.BloomFilter
	n      int
}

// New creates the working directory and starts the consumer goroutine.
func New(config Config) (*Set, error) {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.BufferBytes <= 0 {
		config.BufferBytes = DefaultBufferBytes()
	}
	if config.FalsePositiveRate <= 0 || config.FalsePositiveRate >= 1 {
		config.FalsePositiveRate = DefaultFalsePositiveRate
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	dir, err := os.MkdirTemp(config.Dir, "spillset-")
	if err != nil {
		return nil, errors.Wrap(err, "creating spill directory")
	}

	bufCap := int(config.BufferBytes / 8)
	if bufCap < 1 {
		bufCap = 1
	}

	s := &Set{
		config: config,
		dir:    dir,
		queue:  make(chan message, config.QueueSize),
		abort:  make(chan struct{}),
		done:   make(chan struct{}),
		bufCap: bufCap,
	}
	go s.consume()

	config.Logger.WithField("dir", dir).WithField("buffer-entries", bufCap).Debug("Spill set started")
	return s, nil
}

func (s *Set) State() State {
	return State(s.state.Load())
}

func (s *Set) failure() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Set) fail(err error) {
	s.setFailed(err)
	s.config.Logger.WithField("dir", s.dir).Errorf("Spill set failed: %s", err)
}

// setFailed records the first failure and moves to Failed.
func (s *Set) setFailed(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.state.Store(int32(Failed))
}

// Add enqueues a fingerprint, blocking while the queue is full.  After a
// background failure it returns that failure; after Finish it returns
// ErrNotBuilding.  Every Add which returned nil is included in the finished
// set, even when it raced with Finish.
func (s *Set) Add(fp uint64) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	switch s.State() {
	case Building:
	case Failed:
		return s.failure()
	default:
		return ErrNotBuilding
	}
	select {
	case s.queue <- message{fp: fp}:
		return nil
	case <-s.done:
		if err := s.failure(); err != nil {
			return err
		}
		return ErrNotBuilding
	}
}

// Finish enqueues the terminator and waits for the set to become Ready.  Any
// error raised by the background goroutine is returned.  Calling Finish again
// returns the same result.
func (s *Set) Finish() error {
	s.finishOnce.Do(func() {
		s.sendMu.Lock()
		s.state.CompareAndSwap(int32(Building), int32(Finalizing))
		s.sendMu.Unlock()
		select {
		case s.queue <- message{eof: true}:
		case <-s.done:
		}
	})
	<-s.done
	if err := s.failure(); err != nil {
		return err
	}
	if s.State() != Ready {
		return ErrNotReady
	}
	return nil
}

// Contains reports whether fp was added.  It is safe for concurrent use once
// the set is Ready.
func (s *Set) Contains(fp uint64) (bool, error) {
	switch s.State() {
	case Ready:
	case Failed:
		return false, s.failure()
	default:
		return false, ErrNotReady
	}
	if s.n == 0 {
		return false, nil
	}
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], fp)
	if !s.filter.Test(key[:]) {
		return false, nil
	}
	return s.search(fp), nil
}

// search binary searches the mapped file.
func (s *Set) search(fp uint64) bool {
	lo, hi := 0, s.n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		v := binary.BigEndian.Uint64(s.data[mid*8:])
		switch {
		case v == fp:
			return true
		case v < fp:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// Len returns the number of distinct fingerprints once Ready.
func (s *Set) Len() int {
	if s.State() != Ready {
		return 0
	}
	return s.n
}

// Dir returns the transient working directory.
func (s *Set) Dir() string {
	return s.dir
}

// Close stops the consumer if it is still running, unmaps the merged file
// and removes the working directory.  Queries fail once closed.
func (s *Set) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.abort)
		<-s.done

		// Contains must not observe the unmapped file.
		s.setFailed(ErrClosed)

		if s.data != nil {
			if unmapErr := s.data.Unmap(); unmapErr != nil {
				err = errors.Wrap(unmapErr, "unmapping spill set")
			}
			s.data = nil
		}
		if s.file != nil {
			if closeErr := s.file.Close(); closeErr != nil && err == nil {
				err = errors.Wrap(closeErr, "closing spill set")
			}
			s.file = nil
		}
		if rmErr := os.RemoveAll(s.dir); rmErr != nil && err == nil {
			err = errors.Wrapf(rmErr, "removing %v", s.dir)
		}
	})
	return err
}

func (s *Set) consume() {
	defer close(s.done)

	for {
		select {
		case <-s.abort:
			return

		case msg := <-s.queue:
			if msg.eof {
				if s.State() != Failed {
					if err := s.finalize(); err != nil {
						s.fail(err)
					}
				}
				return
			}
			if s.State() == Failed {
				// Keep draining so producers never block.
				continue
			}
			s.buf = append(s.buf, msg.fp)
			if len(s.buf) >= s.bufCap {
				if err := s.spill(); err != nil {
					s.fail(err)
				}
			}
		}
	}
}
