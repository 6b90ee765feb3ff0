// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package iocheck verifies that code reading from an io.Reader or writing to
// an io.Writer handles partial transfers correctly.
//
// Both interfaces permit a call to transfer fewer bytes than requested. Code
// tested only against well-behaved in-memory streams tends to pass anyway,
// silently depending on full transfers it was never promised. iocheck feeds
// the code under test through instrumented streams that exercise the
// contract's legal extremes and reports the exact stream offset where
// behavior breaks.
//
// Semantics and design:
//   - Adversarial delivery: Reader serves one byte per call and Writer
//     accepts one byte per call by default; a split pins a single two-chunk
//     boundary instead. Both stay inside the io contracts, so any failure is
//     a defect in the code under test, not in the harness. In particular,
//     partial write accepts always return iox.ErrWouldBlock with the count,
//     because io.Writer requires a non-nil error on short writes; the code
//     under test resumes on it the way it would on a non-blocking transport.
//   - Poisoned buffers: whatever a read call does not fill is overwritten
//     with values that can never match the real data, so ignoring the
//     returned count produces loud failures instead of lucky passes.
//   - Boundary search: when the byte-granular run fails, CheckRead and
//     CheckWrite replay the code against two-chunk deliveries to find the
//     leftmost boundary that provokes the failure. That offset, not the
//     first downstream symptom, is where the defect lives.
//   - Synchronous write verification: Writer checks bytes as they arrive and
//     panics with an error value at the first write that makes correct
//     output impossible, so reports name the culprit call rather than a
//     later symptom.
//   - Honest reports: a failure that no boundary position reproduces is
//     reported as inconclusive (ErrInconclusive) instead of being blamed on
//     a fabricated offset.
//   - Non-blocking compatible: WithWouldBlock attaches iox.ErrWouldBlock
//     (re-exposed as iocheck.ErrWouldBlock) to partial transfers, covering
//     the retry paths of code written against non-blocking transports.
//
// The code under test runs many times during a search and must be
// deterministic, so that differences between runs are attributable to the
// delivery pattern alone.
package iocheck

import (
	"io"
	"testing"

	"code.hybscloud.com/iox"
)

// ReadFunc consumes a stream and reports what it found. Returning a non-nil
// error or panicking marks the run as failed; both are treated uniformly,
// since short-read bugs surface as often through slice bounds as through
// error returns.
type ReadFunc func(io.Reader) error

// WriteFunc produces a stream. Returning a non-nil error or panicking marks
// the run as failed. The stream itself additionally verifies every byte
// written against the expected output.
type WriteFunc func(io.Writer) error

// CheckRead runs fn against input under every delivery pattern the harness
// generates and returns nil when all of them pass. Otherwise it returns a
// *Report localizing the defect to the leftmost boundary offset that
// provokes the failure, or an inconclusive report when no boundary
// reproduces it.
func CheckRead(input []byte, fn ReadFunc, opts ...Option) error {
	if fn == nil {
		return ErrInvalidArgument
	}
	o := defaultOptions
	for _, apply := range opts {
		apply(&o)
	}
	c := newChecker(input, o)
	c.rf = fn
	if rep := c.checkRead(); rep != nil {
		return rep
	}
	return nil
}

// CheckWrite runs fn against a Writer that expects exactly the bytes of
// expected, under every acceptance pattern the harness generates. It returns
// nil when fn produces the expected output whole under all of them, and a
// *Report otherwise.
func CheckWrite(expected []byte, fn WriteFunc, opts ...Option) error {
	if fn == nil {
		return ErrInvalidArgument
	}
	o := defaultOptions
	for _, apply := range opts {
		apply(&o)
	}
	c := newChecker(expected, o)
	c.wf = fn
	if rep := c.checkWrite(); rep != nil {
		return rep
	}
	return nil
}

// TestRead is CheckRead wired to a testing.TB: any report fails the test.
func TestRead(tb testing.TB, input []byte, fn ReadFunc, opts ...Option) {
	tb.Helper()
	if err := CheckRead(input, fn, opts...); err != nil {
		tb.Fatal(err)
	}
}

// TestWrite is CheckWrite wired to a testing.TB: any report fails the test.
func TestWrite(tb testing.TB, expected []byte, fn WriteFunc, opts ...Option) {
	tb.Helper()
	if err := CheckWrite(expected, fn, opts...); err != nil {
		tb.Fatal(err)
	}
}

// CheckRoundTrip checks both directions of a codec against the same wire
// bytes: enc must produce data exactly, and dec must consume data correctly,
// each under every delivery pattern. The write side runs first, so an
// encoder defect is reported before the decoder is ever exercised.
func CheckRoundTrip(data []byte, enc WriteFunc, dec ReadFunc, opts ...Option) error {
	if enc == nil || dec == nil {
		return ErrInvalidArgument
	}
	if err := CheckWrite(data, enc, opts...); err != nil {
		return err
	}
	return CheckRead(data, dec, opts...)
}

// TestRoundTrip is CheckRoundTrip wired to a testing.TB.
func TestRoundTrip(tb testing.TB, data []byte, enc WriteFunc, dec ReadFunc, opts ...Option) {
	tb.Helper()
	if err := CheckRoundTrip(data, enc, dec, opts...); err != nil {
		tb.Fatal(err)
	}
}

// Package-level alias so callers can reference the semantic control-flow
// error without importing iox directly.
var (
	// ErrWouldBlock means “no further progress without waiting”.
	//
	// Writer attaches it to every partial accept; Reader attaches it to
	// partial deliveries when WithWouldBlock is enabled. It is an expected,
	// retryable control-flow signal, never a failure: the returned count is
	// real progress, and code under test that surfaces it as an error is
	// reported as defective.
	ErrWouldBlock = iox.ErrWouldBlock
)
