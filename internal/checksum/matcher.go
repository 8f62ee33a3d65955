// Package checksum tracks the SHA-256 of a file's last accepted content.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sum returns the hex SHA-256 of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matcher remembers the checksum of the last content it accepted.
type Matcher struct {
	mu   sync.Mutex
	last string
}

// Match reports whether data has the same checksum as the last accepted
// content.
func (m *Matcher) Match(data []byte) bool {
	sum := Sum(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last != "" && m.last == sum
}

// Accept records data as the current content.
func (m *Matcher) Accept(data []byte) {
	sum := Sum(data)
	m.mu.Lock()
	m.last = sum
	m.mu.Unlock()
}

// Current is the last accepted checksum, empty before the first Accept.
func (m *Matcher) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
