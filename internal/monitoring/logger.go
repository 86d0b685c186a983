// Package monitoring holds the diagnostic logging hooks shared by the marker
// node's components.
package monitoring

import (
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Once logs each key at most once for its lifetime. The zero value is ready
// to use.
type Once struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// Logf writes the message through Logf the first time key is seen and
// reports whether it did.
func (o *Once) Logf(key, format string, v ...interface{}) bool {
	o.mu.Lock()
	if o.seen == nil {
		o.seen = make(map[string]struct{})
	}
	if _, ok := o.seen[key]; ok {
		o.mu.Unlock()
		return false
	}
	o.seen[key] = struct{}{}
	o.mu.Unlock()

	Logf(format, v...)
	return true
}

// Seen reports whether key has already been logged.
func (o *Once) Seen(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.seen[key]
	return ok
}
