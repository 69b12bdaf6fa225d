package settings

import (
	"sync"

	"github.com/dropalt/keyboard-core/fwtimer"
	"github.com/dropalt/keyboard-core/hub"
	"github.com/dropalt/keyboard-core/pkg"
)

// Store is an in-memory cache of a name-keyed NVM region, buffering
// writes and flushing them after flushDelay of inactivity.
type Store struct {
	mu      sync.Mutex
	hal     HAL
	entries map[string][]byte
	order   []string // preserves first-write order, for a stable on-NVM layout
	dirty   bool
	flush   fwtimer.OneShot
}

// New returns a Store backed by hal. Call Load before using it.
func New(hal HAL) *Store {
	return &Store{hal: hal, entries: make(map[string][]byte)}
}

// Load reads the entire region from NVM and parses it into the
// in-memory cache, replacing any prior contents. A region that reads
// back as all 0xFF (erased, never written) or whose first length byte
// is zero is treated as empty rather than corrupt.
func (s *Store) Load() error {
	buf := make([]byte, s.hal.Size())
	if err := s.hal.Read(0, buf); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
	s.order = nil

	off := 0
	for off < len(buf) {
		keyLen := int(buf[off])
		if keyLen == 0 || keyLen == 0xff {
			break
		}
		off++
		if off+keyLen >= len(buf) {
			break
		}
		key := string(buf[off : off+keyLen])
		off += keyLen
		valLen := int(buf[off])
		off++
		if off+valLen > len(buf) {
			break
		}
		value := append([]byte(nil), buf[off:off+valLen]...)
		off += valLen

		if _, exists := s.entries[key]; !exists {
			s.order = append(s.order, key)
		}
		s.entries[key] = value
	}

	return nil
}

// Get returns the value stored under key and reports whether it
// exists.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Set writes value under key, creating the entry if it does not exist,
// and schedules a buffered flush. It returns pkg.ErrNVMFull if the key
// or value exceeds the per-entry size limit, or if the resulting
// region would not fit in the backing HAL.
func (s *Store) Set(key string, value []byte) error {
	if len(key) > maxKeyLen || len(value) > maxValueLen {
		return pkg.ErrNVMFull
	}

	s.mu.Lock()
	existing, exists := s.entries[key]
	projected := s.sizeLocked() + entryOverhead + len(key) + len(value)
	if exists {
		projected -= entryOverhead + len(key) + len(existing)
	}
	if projected > s.hal.Size() {
		s.mu.Unlock()
		return pkg.ErrNVMFull
	}
	if !exists {
		s.order = append(s.order, key)
	}
	s.entries[key] = append([]byte(nil), value...)
	s.dirty = true
	s.mu.Unlock()

	s.scheduleFlush()
	return nil
}

// Remove deletes the entry under key, if any, and schedules a flush.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	if _, ok := s.entries[key]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.dirty = true
	s.mu.Unlock()

	s.scheduleFlush()
	return true
}

// sizeLocked returns the number of bytes the current entries would
// occupy on NVM. s.mu must be held.
func (s *Store) sizeLocked() int {
	n := 0
	for _, k := range s.order {
		n += entryOverhead + len(k) + len(s.entries[k])
	}
	return n
}

// scheduleFlush (re)arms the idle-flush timer. Each call pushes the
// deadline out, so a burst of Sets commits once, flushDelay after the
// last one.
func (s *Store) scheduleFlush() {
	s.flush.Start(flushDelay, s.onFlushTimer)
}

// onFlushTimer is the timer-callback entry point; it logs and
// discards any error since there is no caller left to report it to.
func (s *Store) onFlushTimer() {
	if err := s.Flush(); err != nil {
		pkg.LogError(pkg.ComponentSettings, "buffered flush failed", "err", err)
	}
}

// Flush commits buffered writes to NVM immediately, cancelling any
// pending idle-flush timer. It is a no-op if nothing is dirty.
func (s *Store) Flush() error {
	s.flush.Stop()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}

	buf := make([]byte, s.hal.Size())
	off := 0
	for _, k := range s.order {
		v := s.entries[k]
		buf[off] = uint8(len(k))
		off++
		copy(buf[off:], k)
		off += len(k)
		buf[off] = uint8(len(v))
		off++
		copy(buf[off:], v)
		off += len(v)
	}
	s.dirty = false
	s.mu.Unlock()

	pkg.LogDebug(pkg.ComponentSettings, "flushing settings store", "bytes", off)
	return s.hal.Write(0, buf)
}

// LoadLastHostPort implements hub.PortPersistence.
func (s *Store) LoadLastHostPort() (hub.Port, bool) {
	v, ok := s.Get(keyLastHostPort)
	if !ok || len(v) != 1 {
		return hub.PortA, false
	}
	if v[0] == 1 {
		return hub.PortB, true
	}
	return hub.PortA, true
}

// SaveLastHostPort implements hub.PortPersistence.
func (s *Store) SaveLastHostPort(port hub.Port) {
	v := uint8(0)
	if port == hub.PortB {
		v = 1
	}
	if err := s.Set(keyLastHostPort, []byte{v}); err != nil {
		pkg.LogError(pkg.ComponentSettings, "failed to save last host port", "err", err)
	}
}

// SetBootReason records why the most recent reset occurred, surviving
// the reset itself since it commits to NVM rather than RAM.
func (s *Store) SetBootReason(reason string) {
	if err := s.Set(keyBootReason, []byte(reason)); err != nil {
		pkg.LogError(pkg.ComponentSettings, "failed to record boot reason", "err", err)
	}
	if err := s.Flush(); err != nil {
		pkg.LogError(pkg.ComponentSettings, "failed to flush boot reason", "err", err)
	}
}

// BootReason returns the reason recorded for the last reset, if any.
func (s *Store) BootReason() (string, bool) {
	v, ok := s.Get(keyBootReason)
	if !ok {
		return "", false
	}
	return string(v), true
}

var _ hub.PortPersistence = (*Store)(nil)
