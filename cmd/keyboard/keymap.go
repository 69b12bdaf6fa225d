package main

import (
	"github.com/dropalt/keyboard-core/device/class/hid"
	"github.com/dropalt/keyboard-core/keyevent"
	"github.com/dropalt/keyboard-core/keymap"
	"github.com/dropalt/keyboard-core/matrix"
)

// baseRow is a representative alphanumeric keycode table long enough to
// cover every matrix slot, cycling if the matrix is larger than it. Real
// boards source this from a per-board layout file; this stands in for
// one since no specific physical layout was supplied.
var baseRow = []uint8{
	hid.KeyA, hid.KeyB, hid.KeyC, hid.KeyD, hid.KeyE, hid.KeyF, hid.KeyG,
	hid.KeyH, hid.KeyI, hid.KeyJ, hid.KeyK, hid.KeyL, hid.KeyM, hid.KeyN,
	hid.KeyO, hid.KeyP, hid.KeyQ, hid.KeyR, hid.KeyS, hid.KeyT, hid.KeyU,
	hid.KeyV, hid.KeyW, hid.KeyX, hid.KeyY, hid.KeyZ, hid.Key1, hid.Key2,
	hid.Key3, hid.Key4, hid.Key5, hid.Key6, hid.Key7, hid.Key8, hid.Key9,
	hid.Key0, hid.KeySpace, hid.KeyEnter,
}

// escSlot and capsSlot are the two slots given special treatment below;
// every other slot gets a plain literal from baseRow.
const (
	escSlot  = 0
	capsSlot = 1
)

// buildKeymap binds every matrix slot to a node and returns the lamp
// registry so the caller can wire it to the USB agent's lamp reports.
// profile selects between the stock layout and a "swap-caps-escape"
// variant some typists prefer, mirroring a common firmware keymap
// option.
func buildKeymap(profile string, queue *keyevent.Queue, reporter keymap.Reporter, dispatcher *keymap.Dispatcher) *keymap.LampRegistry {
	lamps := keymap.NewLampRegistry()

	escCode, capsCode := uint8(hid.KeyEscape), uint8(hid.KeyCapsLock)
	if profile == "swap-caps-escape" {
		escCode, capsCode = capsCode, escCode
	}

	dispatcher.Bind(escSlot, keymap.NewTapHold(queue, dispatcher, reporter, escCode, hid.KeyLeftCtrl, keymap.DefaultTappingTerm))
	dispatcher.Bind(capsSlot, keymap.NewIndicator(lamps, keymap.LampCapsLock, keymap.NewLiteral(reporter, capsCode)))

	for slot := 2; slot < matrix.NumSlots; slot++ {
		code := baseRow[(slot-2)%len(baseRow)]
		dispatcher.Bind(uint8(slot), keymap.NewLiteral(reporter, code))
	}

	return lamps
}
