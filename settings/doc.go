// Package settings implements the persistent name-keyed store: a
// single associative array of key-value pairs held in a
// byte-addressable NVM region, loaded once at startup, cached in
// memory, and written back through an injected HAL after an idle
// period or on explicit flush.
//
// The on-NVM layout is self-describing: each entry is a 1-byte key
// length, the key bytes, a 1-byte value length, and the value bytes,
// laid out back to back with no padding; a zero key length marks the
// end of the region's used portion. Store never reasons about flash
// wear leveling or erase cycles itself — that belongs to the HAL.
package settings
