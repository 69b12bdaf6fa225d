package keymap

import (
	"strconv"
	"sync"
)

// fakeReporter records ReportPress/ReportRelease calls in order, for tests
// that don't need a real hidreport.Reporter.
type fakeReporter struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeReporter) ReportPress(code uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventString("press", code))
}

func (f *fakeReporter) ReportRelease(code uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventString("release", code))
}

func (f *fakeReporter) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

func eventString(kind string, code uint8) string {
	return kind + ":" + strconv.Itoa(int(code))
}

// fakeLamps satisfies LampNotifier, recording every signalled key event.
type fakeLamps struct {
	mu     sync.Mutex
	events []keyEventRecord
}

type keyEventRecord struct {
	Slot  uint8
	Press bool
}

func (f *fakeLamps) SignalKeyEvent(slot uint8, press bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, keyEventRecord{Slot: slot, Press: press})
}

func (f *fakeLamps) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// fakeHub satisfies SwitchoverRequester, counting switchover requests.
type fakeHub struct {
	mu    sync.Mutex
	count int
}

func (f *fakeHub) RequestSwitchover() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
}

func (f *fakeHub) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// fakeIdle satisfies IdleChecker with a settable answer.
type fakeIdle struct {
	mu   sync.Mutex
	busy bool
}

func (f *fakeIdle) IsAnyPressed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeIdle) setBusy(v bool) {
	f.mu.Lock()
	f.busy = v
	f.mu.Unlock()
}
