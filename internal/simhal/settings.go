package simhal

import (
	"fmt"
	"os"
	"sync"
)

// NVM stands in for the byte-addressable NVM region settings.Store reads
// and writes. It is backed by a plain in-memory buffer unless a file
// path is given, in which case Read loads from it at startup and every
// Write rewrites it whole, approximating how a real SEEPROM-backed store
// persists across a process restart.
type NVM struct {
	mu   sync.Mutex
	buf  []byte
	path string
}

// NewNVM returns an NVM region of size bytes. If path is non-empty and
// an existing file is found there, its contents seed buf (truncated or
// zero-padded to size); otherwise the region starts erased (all 0xFF,
// matching flash/EEPROM's erased state).
func NewNVM(size int, path string) (*NVM, error) {
	n := &NVM{buf: make([]byte, size), path: path}
	for i := range n.buf {
		n.buf[i] = 0xFF
	}

	if path == "" {
		return n, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return n, nil
		}
		return nil, fmt.Errorf("simhal: reading settings file: %w", err)
	}
	copy(n.buf, data)
	return n, nil
}

// Size implements settings.HAL.
func (n *NVM) Size() int {
	return len(n.buf)
}

// Read implements settings.HAL.
func (n *NVM) Read(offset int, buf []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	copy(buf, n.buf[offset:offset+len(buf)])
	return nil
}

// Write implements settings.HAL. When backed by a file, it rewrites the
// file in full so settings survive a restart of the simulated device.
func (n *NVM) Write(offset int, buf []byte) error {
	n.mu.Lock()
	copy(n.buf[offset:offset+len(buf)], buf)
	snapshot := append([]byte(nil), n.buf...)
	path := n.path
	n.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, snapshot, 0o600); err != nil {
		return fmt.Errorf("simhal: writing settings file: %w", err)
	}
	return nil
}
