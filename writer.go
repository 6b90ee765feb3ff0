// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iocheck

import (
	"bytes"
	"fmt"
)

// writeMode selects how a Writer meters acceptance across calls.
type writeMode uint8

const (
	writeChunk writeMode = 1 // one byte accepted per call
	writeSplit writeMode = 2 // full acceptance except at a fixed boundary
)

// Writer verifies a byte stream against expected output while accepting it
// with adversarial but contract-legal granularity. By default every call
// accepts exactly one byte; WithSplit pins a single boundary instead, before
// which acceptance stops and after which writes are taken whole.
//
// The io.Writer contract requires a non-nil error whenever a call accepts
// fewer bytes than presented, so every partial accept returns the count
// together with ErrWouldBlock. The count is real progress and the signal is
// retryable: code under test resumes from the unaccepted remainder, the way
// it would drive any non-blocking transport.
//
// Verification is synchronous: the moment a write makes correct output
// impossible, Write panics with an error value carrying the offset and the
// suspect call site, so the failure surfaces at the culprit rather than
// after the fact. A zero-length write also faults: it cannot make progress,
// and a resume loop that issues one is stuck.
//
// Call Verify after the code under test finishes to catch output that ended
// short. Writer deliberately does not implement io.ReaderFrom: a fast path
// absorbing the whole stream would bypass the very granularity being tested.
type Writer struct {
	expected  []byte
	off       int
	mode      writeMode
	splitAt   int
	rec       recorder
	calls     int
	lastShort int // bytes presented but not accepted by the previous call
}

// NewWriter wraps the expected output in an instrumented stream for direct
// use. For the full boundary search over all split positions, use
// CheckWrite.
func NewWriter(expected []byte, opts ...Option) *Writer {
	o := defaultOptions
	for _, apply := range opts {
		apply(&o)
	}
	return newWriter(expected, &o, newRecorder(&o))
}

func newWriter(expected []byte, o *Options, rec recorder) *Writer {
	w := &Writer{
		expected: expected,
		mode:     writeChunk,
		splitAt:  -1,
		rec:      rec,
	}
	if o.SplitAt >= 0 {
		w.mode = writeSplit
		w.splitAt = min(o.SplitAt, len(expected))
	}
	return w
}

// Write verifies p against the expected output at the current offset, then
// accepts it under the configured granularity. It never accepts zero bytes
// of a non-empty p, so it stays on the right side of the io.Writer contract.
func (w *Writer) Write(p []byte) (int, error) {
	w.calls++
	if len(p) == 0 {
		w.rec.capture()
		w.fail(KindUnexpectedData, w.off, fmt.Sprintf("zero-length write at offset %d", w.off))
	}
	if w.off+len(p) > len(w.expected) {
		w.rec.capture()
		w.fail(KindUnexpectedData, len(w.expected),
			fmt.Sprintf("write of %d bytes at offset %d extends past the %d expected",
				len(p), w.off, len(w.expected)))
	}
	if i := diffIndex(p, w.expected[w.off:w.off+len(p)]); i >= 0 {
		if w.lastShort > 0 && w.matchesAt(p, w.off+w.lastShort) {
			// The data is what belongs after the unaccepted tail of the
			// previous call: that call was treated as complete. Its own
			// capture, still held, names the culprit.
			w.fail(KindPartialWrite, w.off,
				fmt.Sprintf("a write was accepted only up to offset %d but the next write resumes at offset %d",
					w.off, w.off+w.lastShort))
		}
		w.rec.capture()
		w.fail(KindUnexpectedData, w.off+i,
			fmt.Sprintf("unexpected data at offset %d: got %#x, want %#x",
				w.off+i, p[i], w.expected[w.off+i]))
	}
	n := w.accept(len(p))
	if n < len(p) {
		// Partially accepted: this call is the suspect if never resumed.
		w.rec.capture()
		w.lastShort = len(p) - n
		w.off += n
		return n, ErrWouldBlock
	}
	w.rec.erase()
	w.lastShort = 0
	w.off += n
	return n, nil
}

func (w *Writer) accept(presented int) int {
	if w.mode == writeSplit {
		if w.off < w.splitAt {
			return min(presented, w.splitAt-w.off)
		}
		return presented
	}
	return 1
}

// Verify reports whether the expected output arrived in full. It
// distinguishes a partial write that was never resumed from output that
// simply ended early, and is safe to call more than once.
func (w *Writer) Verify() error {
	if w.off >= len(w.expected) {
		return nil
	}
	if w.lastShort == len(w.expected)-w.off {
		return &fault{
			op:   OpWrite,
			kind: KindPartialWrite,
			off:  w.off,
			detail: fmt.Sprintf("a write was accepted only up to offset %d and never resumed (%d of %d bytes written)",
				w.off, w.off, len(w.expected)),
			site: w.rec.site(),
		}
	}
	return &fault{
		op:   OpWrite,
		kind: KindShortOutput,
		off:  w.off,
		detail: fmt.Sprintf("output ended early: %d of %d bytes written",
			w.off, len(w.expected)),
		site: w.rec.site(),
	}
}

func (w *Writer) fail(kind Kind, off int, detail string) {
	panic(&fault{op: OpWrite, kind: kind, off: off, detail: detail, site: w.rec.site()})
}

// matchesAt reports whether p equals the expected output starting at off.
func (w *Writer) matchesAt(p []byte, off int) bool {
	if off+len(p) > len(w.expected) {
		return false
	}
	return bytes.Equal(p, w.expected[off:off+len(p)])
}

// diffIndex returns the first index where a and b differ, or -1 when a is a
// prefix-wise match over its full length. len(a) must not exceed len(b).
func diffIndex(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}
