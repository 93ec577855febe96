/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package vote

import (
	"errors"
	"sync"
)

var errBrokenConn = errors.New("broken connection")

// fakeConn records everything sent to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	msgs   []any
	broken bool
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string {
	return f.id
}

func (f *fakeConn) Send(msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.broken || f.closed {
		return errBrokenConn
	}
	f.msgs = append(f.msgs, msg)

	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.msgs = nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.msgs)
}

// lastOf returns the most recent message of type T sent to c.
func lastOf[T any](c *fakeConn) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.msgs) - 1; i >= 0; i-- {
		if m, ok := c.msgs[i].(T); ok {
			return m, true
		}
	}

	var zero T

	return zero, false
}

func countOf[T any](c *fakeConn) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, msg := range c.msgs {
		if _, ok := msg.(T); ok {
			n++
		}
	}

	return n
}
