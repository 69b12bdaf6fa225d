package keymap

import "sync"

// Indicator associates a keymap slot with one of the host's lamp bits:
// it behaves exactly like the wrapped node for press/release, and
// separately tracks whether its lamp is currently lit so a caller
// driving per-key RGB output can query it.
type Indicator struct {
	inner    Node
	lamp     LampID
	registry *LampRegistry

	mu  sync.Mutex
	lit bool
}

// NewIndicator returns an Indicator wrapping inner and subscribed to
// lamp's state in registry.
func NewIndicator(registry *LampRegistry, lamp LampID, inner Node) *Indicator {
	ind := &Indicator{inner: inner, lamp: lamp, registry: registry}
	registry.Subscribe(lamp, func(lit bool) {
		ind.mu.Lock()
		ind.lit = lit
		ind.mu.Unlock()
	})
	return ind
}

// Lamp returns the LampID this indicator tracks.
func (i *Indicator) Lamp() LampID { return i.lamp }

// IsLit reports whether the host currently has this indicator's lamp
// bit set.
func (i *Indicator) IsLit() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lit
}

func (i *Indicator) Press(slot uint8)   { i.inner.Press(slot) }
func (i *Indicator) Release(slot uint8) { i.inner.Release(slot) }
func (i *Indicator) IsPressed() bool    { return i.inner.IsPressed() }

var _ Node = (*Indicator)(nil)
