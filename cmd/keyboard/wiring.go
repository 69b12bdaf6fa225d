package main

import (
	"sync"

	"github.com/dropalt/keyboard-core/hub"
)

// vconForwarder lets adc.Agent be constructed before the hub.Controller
// that must receive its periodic extra-port samples: hub.NewController
// starts probing through the adc.Agent immediately, so the adc.Agent has
// to exist first, but the adc.Agent's own VConObserver has to be the
// hub.Controller that does not exist yet. set() is called once, right
// after hub.NewController returns, before the adc.Agent's Run loop is
// ever started.
type vconForwarder struct {
	mu     sync.Mutex
	target *hub.Controller
}

func (f *vconForwarder) set(c *hub.Controller) {
	f.mu.Lock()
	f.target = c
	f.mu.Unlock()
}

func (f *vconForwarder) OnVConSample(port hub.Port) {
	f.mu.Lock()
	t := f.target
	f.mu.Unlock()
	if t != nil {
		t.OnVConSample(port)
	}
}

// v5vForwarder fans the adc.Agent's single V5VObserver slot out to both
// the hub controller (brownout panic-disable) and the RGB controller
// (GCR derating), for the same construction-order reason as
// vconForwarder.
type v5vForwarder struct {
	mu      sync.Mutex
	targets []func(hub.V5VLevel)
}

func (f *v5vForwarder) add(fn func(hub.V5VLevel)) {
	f.mu.Lock()
	f.targets = append(f.targets, fn)
	f.mu.Unlock()
}

func (f *v5vForwarder) OnV5VLevel(level hub.V5VLevel) {
	f.mu.Lock()
	targets := append([]func(hub.V5VLevel)(nil), f.targets...)
	f.mu.Unlock()
	for _, fn := range targets {
		fn(level)
	}
}
