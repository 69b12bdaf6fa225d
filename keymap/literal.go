package keymap

// Literal emits a single HID keycode on press and release.
type Literal struct {
	Base
	code uint8
	hid  Reporter
}

// NewLiteral returns a Literal node that presses and releases code
// through hid.
func NewLiteral(hid Reporter, code uint8) *Literal {
	l := &Literal{code: code, hid: hid}
	l.Base = NewBase(l)
	return l
}

// Keycode returns the HID keycode this node emits.
func (l *Literal) Keycode() uint8 { return l.code }

func (l *Literal) OnPress(uint8)   { l.hid.ReportPress(l.code) }
func (l *Literal) OnRelease(uint8) { l.hid.ReportRelease(l.code) }
