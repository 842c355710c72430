// Package iox holds small cleanup helpers for closers and flushers.
package iox

import "io"

// DiscardClose closes c and drops the error. For defers where a close
// failure cannot be acted on:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a func that closes c, for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(a))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and drops its error, e.g. defer iox.DiscardErr(w.Flush).
func DiscardErr(fn func() error) { _ = fn() }
