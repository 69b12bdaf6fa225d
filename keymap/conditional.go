package keymap

// Conditional picks whenTrue or whenFalse by evaluating cond at press
// time, and replays the same choice at release, mirroring [[if_t]].
type Conditional struct {
	Base
	cond      func() bool
	whenTrue  Node
	whenFalse Node
	wasFalse  bool
}

// NewConditional returns a node that presses whenTrue when cond() is true
// at press time, otherwise whenFalse.
func NewConditional(cond func() bool, whenTrue, whenFalse Node) *Conditional {
	c := &Conditional{cond: cond, whenTrue: whenTrue, whenFalse: whenFalse}
	c.Base = NewBase(c)
	return c
}

func (c *Conditional) OnPress(slot uint8) {
	if c.cond() {
		c.whenTrue.Press(slot)
	} else {
		c.wasFalse = true
		c.whenFalse.Press(slot)
	}
}

func (c *Conditional) OnRelease(slot uint8) {
	if c.wasFalse {
		c.whenFalse.Release(slot)
		c.wasFalse = false
	} else {
		c.whenTrue.Release(slot)
	}
}
