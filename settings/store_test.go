package settings

import (
	"sync"
	"testing"
	"time"

	"github.com/dropalt/keyboard-core/hub"
)

type fakeHAL struct {
	mu   sync.Mutex
	buf  []byte
	errs int
}

func newFakeHAL(size int) *fakeHAL {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xff
	}
	return &fakeHAL{buf: buf}
}

func (f *fakeHAL) Size() int {
	return len(f.buf)
}

func (f *fakeHAL) Read(offset int, dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf[offset:])
	return nil
}

func (f *fakeHAL) Write(offset int, src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.buf[offset:], src)
	f.errs++
	return nil
}

func (f *fakeHAL) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs
}

func TestLoadOfErasedRegionIsEmpty(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := s.Get("anything"); ok {
		t.Fatal("expected no entries in an erased region")
	}
}

func TestSetThenGetRoundTrips(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()

	if err := s.Set("name", []byte("value")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := s.Get("name")
	if !ok || string(v) != "value" {
		t.Fatalf("Get() = %q, %v, want \"value\", true", v, ok)
	}
}

func TestFlushIsBufferedUntilIdle(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()

	s.Set("a", []byte{1})
	if hal.writeCount() != 0 {
		t.Fatal("expected no immediate NVM write")
	}

	deadline := time.Now().Add(3 * time.Second)
	for hal.writeCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if hal.writeCount() == 0 {
		t.Fatal("expected a buffered flush to have committed by now")
	}
}

func TestExplicitFlushCommitsImmediately(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()

	s.Set("a", []byte{1})
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if hal.writeCount() != 1 {
		t.Fatalf("writeCount = %d, want 1", hal.writeCount())
	}
}

func TestValuesSurviveReloadAfterFlush(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()
	s.Set("x", []byte{9, 8, 7})
	s.Flush()

	reloaded := New(hal)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, ok := reloaded.Get("x")
	if !ok || len(v) != 3 || v[0] != 9 || v[1] != 8 || v[2] != 7 {
		t.Fatalf("Get(x) after reload = %v, %v", v, ok)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()
	s.Set("gone", []byte{1})

	if !s.Remove("gone") {
		t.Fatal("expected Remove to report the entry existed")
	}
	if _, ok := s.Get("gone"); ok {
		t.Fatal("expected entry to be gone")
	}
}

func TestSetTooLargeReturnsErrNVMFull(t *testing.T) {
	hal := newFakeHAL(8)
	s := New(hal)
	s.Load()

	if err := s.Set("k", make([]byte, 32)); err == nil {
		t.Fatal("expected an error for an oversized entry")
	}
}

func TestLoadLastHostPortDefaultsToPortAWhenUnset(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()

	port, ok := s.LoadLastHostPort()
	if ok || port != hub.PortA {
		t.Fatalf("LoadLastHostPort() = %v, %v, want PortA, false", port, ok)
	}
}

func TestSaveThenLoadLastHostPortRoundTrips(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()

	s.SaveLastHostPort(hub.PortB)
	port, ok := s.LoadLastHostPort()
	if !ok || port != hub.PortB {
		t.Fatalf("LoadLastHostPort() = %v, %v, want PortB, true", port, ok)
	}
}

func TestSetBootReasonFlushesImmediately(t *testing.T) {
	hal := newFakeHAL(256)
	s := New(hal)
	s.Load()

	s.SetBootReason(BootReasonWatchdog)
	if hal.writeCount() == 0 {
		t.Fatal("expected SetBootReason to flush immediately")
	}

	reason, ok := s.BootReason()
	if !ok || reason != BootReasonWatchdog {
		t.Fatalf("BootReason() = %q, %v, want %q, true", reason, ok, BootReasonWatchdog)
	}
}
