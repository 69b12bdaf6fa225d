package keymap

// Modified chooses between two child nodes depending on whether modifier
// is pressed at the moment this node's key goes down, and replays that
// same choice on release regardless of the modifier's state by then
// (mirroring [[map_modified_t]]'s decide-once-at-press behavior, since the
// modifier may already be up before this key is released).
type Modified struct {
	Base
	modifier     Node
	whenModified Node
	whenPlain    Node
	wasModified  bool
}

// NewModified returns a node that presses whenModified if modifier is
// held at press time, otherwise whenPlain.
func NewModified(modifier, whenModified, whenPlain Node) *Modified {
	m := &Modified{modifier: modifier, whenModified: whenModified, whenPlain: whenPlain}
	m.Base = NewBase(m)
	return m
}

func (m *Modified) OnPress(slot uint8) {
	if m.modifier.IsPressed() {
		m.wasModified = true
		m.whenModified.Press(slot)
	} else {
		m.whenPlain.Press(slot)
	}
}

func (m *Modified) OnRelease(slot uint8) {
	if m.wasModified {
		m.whenModified.Release(slot)
		m.wasModified = false
	} else {
		m.whenPlain.Release(slot)
	}
}
