package keymap

import (
	"reflect"
	"testing"
	"time"

	"github.com/dropalt/keyboard-core/keyevent"
)

func newTestTapHoldDispatcher() (*keyevent.Queue, *Dispatcher) {
	queue := keyevent.New()
	return queue, NewDispatcher(queue, &fakeLamps{}, &fakeHub{}, &fakeIdle{})
}

func TestTapHoldQuickTapEmitsTapCode(t *testing.T) {
	queue, d := newTestTapHoldDispatcher()
	hid := &fakeReporter{}
	th := NewTapHold(queue, d, hid, 1, 2, 50*time.Millisecond)

	th.Press(0)
	th.Release(0) // well within the tapping term

	want := []string{"press:1", "release:1"}
	if got := hid.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if th.IsPressing() {
		t.Fatal("a resolved tap must not be considered a hold")
	}
	if queue.Deferrer() != nil {
		t.Fatal("defer must be released once the tap resolves")
	}
}

func TestTapHoldTimeoutDecidesHold(t *testing.T) {
	queue, d := newTestTapHoldDispatcher()
	hid := &fakeReporter{}
	th := NewTapHold(queue, d, hid, 1, 2, 15*time.Millisecond)

	th.Press(0)
	time.Sleep(50 * time.Millisecond)
	if !d.drainEvents() {
		t.Fatal("expected the tapping-term timer to have posted a decision event")
	}

	if !th.IsPressing() {
		t.Fatal("expected hold decided after timeout")
	}
	if queue.Deferrer() != nil {
		t.Fatal("defer must be released once hold is decided")
	}

	th.Release(0)
	want := []string{"press:2", "release:2"}
	if got := hid.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTapHoldPreferredDecidesHoldOnAnyOtherPress(t *testing.T) {
	queue, d := newTestTapHoldDispatcher()
	hid := &fakeReporter{}
	th := NewTapHold(queue, d, hid, 1, 2, time.Second)

	th.Press(0)
	if proceed := th.OnOtherPress(9); !proceed {
		t.Fatal("hold-preferred must decide immediately on any other key press")
	}
	if !th.IsPressing() {
		t.Fatal("expected hold decided")
	}
	th.Release(0)

	want := []string{"press:2", "release:2"}
	if got := hid.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTapHoldBalancedRequiresMatchingReleaseOfOtherKey(t *testing.T) {
	queue, d := newTestTapHoldDispatcher()
	hid := &fakeReporter{}
	th := NewTapHoldBalanced(queue, d, hid, 1, 2, time.Second)

	th.Press(0)
	if proceed := th.OnOtherPress(9); proceed {
		t.Fatal("balanced mode must not decide on a lone other-key press")
	}
	if th.IsPressing() {
		t.Fatal("must not be holding yet")
	}

	// A different key's release must not satisfy the pending one.
	if proceed := th.OnOtherRelease(3); proceed {
		t.Fatal("a release of an unrelated slot must not decide the hold")
	}
	if th.IsPressing() {
		t.Fatal("still must not be holding")
	}

	if proceed := th.OnOtherRelease(9); !proceed {
		t.Fatal("the matching release of the previously-pressed other key must decide hold")
	}
	if !th.IsPressing() {
		t.Fatal("expected hold decided")
	}

	th.Release(0)
	want := []string{"press:2", "release:2"}
	if got := hid.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTapHoldHelpHoldingIsIdempotent(t *testing.T) {
	queue, d := newTestTapHoldDispatcher()
	hid := &fakeReporter{}
	th := NewTapHold(queue, d, hid, 1, 2, time.Second)

	th.Press(0)
	th.OnOtherPress(9)
	th.OnOtherPress(8) // a second other-key press after hold already decided

	want := []string{"press:2"}
	if got := hid.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v; hold code must only be reported once", got, want)
	}
}
