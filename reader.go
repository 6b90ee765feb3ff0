// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iocheck

import (
	"io"

	"code.hybscloud.com/iocheck/internal/scramble"
)

// readMode selects how a Reader slices its input across calls.
type readMode uint8

const (
	readTrickle readMode = 1 // one byte per call
	readSplit   readMode = 2 // two chunks around a fixed boundary
)

// Reader serves a byte stream with adversarial but contract-legal
// granularity. By default every call delivers exactly one byte; WithSplit
// pins a single boundary instead, delivering the input as two chunks.
//
// Whatever part of the destination buffer a call does not fill is poisoned
// with values guaranteed to differ from the data that belongs at those
// positions, so code that ignores the returned count reads wrong bytes
// instead of coincidentally right ones.
//
// Reading into an empty buffer returns (0, nil) and means nothing. Once the
// input is exhausted, Read returns (0, io.EOF). Reader deliberately does not
// implement io.WriterTo: a fast path handing the whole input to io.Copy
// would bypass the very granularity being tested.
type Reader struct {
	input   []byte
	off     int
	mode    readMode
	splitAt int
	inject  bool
	rec     recorder
	calls   int
}

// NewReader wraps input in an instrumented stream for direct use. For the
// full boundary search over all split positions, use CheckRead.
func NewReader(input []byte, opts ...Option) *Reader {
	o := defaultOptions
	for _, apply := range opts {
		apply(&o)
	}
	return newReader(input, &o, newRecorder(&o))
}

func newReader(input []byte, o *Options, rec recorder) *Reader {
	r := &Reader{
		input:   input,
		mode:    readTrickle,
		splitAt: -1,
		inject:  o.WouldBlock,
		rec:     rec,
	}
	if o.SplitAt >= 0 {
		r.mode = readSplit
		r.splitAt = min(o.SplitAt, len(input))
	}
	return r
}

// Read serves the next slice of input under the configured delivery
// pattern. It never returns (0, nil) for a non-empty p before the input is
// exhausted, so it stays on the right side of the io.Reader contract.
func (r *Reader) Read(p []byte) (int, error) {
	r.calls++
	if len(p) == 0 {
		return 0, nil
	}
	if r.off >= len(r.input) {
		return 0, io.EOF
	}
	var n int
	switch r.mode {
	case readSplit:
		n = r.serveSplit(p)
	default:
		n = r.serveTrickle(p)
	}
	if n < len(p) && r.inject {
		return n, ErrWouldBlock
	}
	return n, nil
}

func (r *Reader) serveTrickle(p []byte) int {
	p[0] = r.input[r.off]
	r.off++
	scramble.Fill(p[1:], r.input[r.off:])
	return 1
}

func (r *Reader) serveSplit(p []byte) int {
	if r.off < r.splitAt {
		avail := r.splitAt - r.off
		if len(p) <= avail {
			n := copy(p, r.input[r.off:r.splitAt])
			r.off += n
			return n
		}
		// This call asks past the boundary, making it the prime suspect
		// for the current delivery pattern. It can happen at most once:
		// after it the offset sits at the boundary.
		r.rec.capture()
		n := copy(p, r.input[r.off:r.splitAt])
		r.off += n
		scramble.Fill(p[n:], r.input[r.off:])
		return n
	}
	n := copy(p, r.input[r.off:])
	r.off += n
	if n < len(p) {
		scramble.Fill(p[n:], r.input[r.off:])
	}
	return n
}
