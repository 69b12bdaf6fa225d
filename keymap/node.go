package keymap

// Node is the interface every keymap entry satisfies. Press and Release
// are called by the dispatcher with the physical slot that triggered
// them; a node mapped to more than one slot treats simultaneous presses
// across its slots as a single logical press via Base's press-count
// gating.
type Node interface {
	Press(slot uint8)
	Release(slot uint8)
	IsPressed() bool
}

// Hooks is implemented by a node's own type and invoked by Base only on
// the net-zero-to-one and one-to-zero press-count transitions.
type Hooks interface {
	OnPress(slot uint8)
	OnRelease(slot uint8)
}

// Deferrer is implemented by nodes that register themselves as the key
// event queue's active deferrer (tap-hold, tap-dance). While such a node
// is deferring, the dispatcher routes every other slot's events through
// OnOtherPress/OnOtherRelease instead of that slot's own node; a true
// return lets the event through immediately (and discards it from the
// deferred window), false leaves it queued for replay once deferring
// stops.
type Deferrer interface {
	Node
	Slot() uint8
	OnOtherPress(slot uint8) bool
	OnOtherRelease(slot uint8) bool
}

// Reporter is the HID keycode sink a leaf node presses and releases
// through. Implemented by the HID report pipeline.
type Reporter interface {
	ReportPress(keycode uint8)
	ReportRelease(keycode uint8)
}

// Base implements the press-count gating shared by every node: on_press
// and on_release only fire on the transition into and out of "pressed",
// so a node reachable from multiple slots (or pressed again before its
// matching release, which should not normally happen but is tolerated)
// behaves as one logical key.
type Base struct {
	hooks      Hooks
	pressCount int8
}

// NewBase returns a Base that forwards transition-edge presses/releases
// to hooks. Concrete node types construct their embedded Base after they
// exist, passing themselves as hooks:
//
//	l := &Literal{...}
//	l.Base = NewBase(l)
func NewBase(hooks Hooks) Base {
	return Base{hooks: hooks}
}

func (b *Base) Press(slot uint8) {
	b.pressCount++
	if b.pressCount == 1 {
		b.hooks.OnPress(slot)
	}
}

func (b *Base) Release(slot uint8) {
	b.pressCount--
	if b.pressCount == 0 {
		b.hooks.OnRelease(slot)
	}
}

func (b *Base) IsPressed() bool {
	return b.pressCount > 0
}

// NoOp is a key slot that does nothing: QMK's KC_NO / the original
// firmware's NO / ___.
type NoOp struct{}

func (NoOp) Press(uint8)        {}
func (NoOp) Release(uint8)      {}
func (NoOp) IsPressed() bool    { return false }

// NO is the shared no-op node; slots with no assignment bind to it.
var NO Node = NoOp{}
