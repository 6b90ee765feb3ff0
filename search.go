// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iocheck

import "fmt"

// outcome is the observed result of one probe: a single run of the code
// under test against one delivery pattern.
type outcome struct {
	failed bool
	cause  error
	fault  *fault // set when cause is a stream verification fault
	site   *CallSite
	calls  int
}

// checker drives the boundary search for one direction. Probe results are
// cached per split position, so the bisect and the linear fallback always
// agree on what they observed and no pattern runs twice.
type checker struct {
	opts   Options
	input  []byte // stream input for reads, expected output for writes
	rf     ReadFunc
	wf     WriteFunc
	probes int
	cache  map[int]*outcome
}

func newChecker(input []byte, o Options) *checker {
	return &checker{opts: o, input: input, cache: make(map[int]*outcome)}
}

// observe runs fn and folds a returned error, a returned stream fault, or a
// panic into out. Panics are part of the failure surface on purpose: code
// that misreads a length because of a short read tends to blow up on a
// slice bound rather than return an error.
func observe(out *outcome, fn func() error) {
	defer func() {
		if v := recover(); v != nil {
			out.failed = true
			if f, ok := v.(*fault); ok {
				out.fault = f
				out.cause = f
			} else {
				out.cause = panicError{value: v}
			}
		}
	}()
	if err := fn(); err != nil {
		out.failed = true
		out.cause = err
		if f, ok := err.(*fault); ok {
			out.fault = f
		}
	}
}

// probeRead runs the read closure once against a fresh Reader. pos selects
// the split position; negative selects byte-granular delivery.
func (c *checker) probeRead(pos int) *outcome {
	c.probes++
	rec := newRecorder(&c.opts)
	o := c.opts
	o.SplitAt = pos
	r := newReader(c.input, &o, rec)
	out := &outcome{}
	observe(out, func() error { return c.rf(r) })
	out.calls = r.calls
	if out.failed {
		out.site = probeSite(out, rec)
	}
	return out
}

// probeWrite runs the write closure once against a fresh Writer, then
// verifies that the expected output arrived in full.
func (c *checker) probeWrite(pos int) *outcome {
	c.probes++
	rec := newRecorder(&c.opts)
	o := c.opts
	o.SplitAt = pos
	w := newWriter(c.input, &o, rec)
	out := &outcome{}
	observe(out, func() error {
		if err := c.wf(w); err != nil {
			return err
		}
		return w.Verify()
	})
	out.calls = w.calls
	if out.failed {
		out.site = probeSite(out, rec)
	}
	return out
}

// probeSite picks the culprit call site for a failed probe: the fault's own
// snapshot when the stream raised one, otherwise whatever call the recorder
// last held under suspicion.
func probeSite(out *outcome, rec recorder) *CallSite {
	if out.fault != nil && out.fault.site != nil {
		return out.fault.site
	}
	return rec.site()
}

func (c *checker) probe(pos int) *outcome {
	if c.rf != nil {
		return c.probeRead(pos)
	}
	return c.probeWrite(pos)
}

// probeAt memoizes probes by split position.
func (c *checker) probeAt(pos int) *outcome {
	if o, ok := c.cache[pos]; ok {
		return o
	}
	o := c.probe(pos)
	c.cache[pos] = o
	return o
}

// checkRead searches for the leftmost split position that makes the read
// closure fail. The byte-granular run gates the search: when it passes, the
// closure handles every legal delivery this harness can produce.
func (c *checker) checkRead() *Report {
	first := c.probeRead(-1)
	if !first.failed {
		return nil
	}
	pos, o := c.locate(len(c.input))
	if pos < 0 {
		return c.inconclusive(OpRead, first)
	}
	return c.conclude(OpRead, KindPartialRead, pos, o, first)
}

// checkWrite runs the write closure under byte-granular acceptance. A
// stream fault carries its own offset, which one confirming probe replays
// with a boundary pinned there; a failure the closure reports on its own is
// localized by the same boundary search reads use. A failure that no
// boundary reproduces is reported as inconclusive rather than blamed on an
// arbitrary offset.
func (c *checker) checkWrite() *Report {
	first := c.probeWrite(-1)
	if !first.failed {
		return nil
	}
	if first.fault != nil {
		f := first.fault
		conf := c.probeAt(f.off)
		if conf.failed && conf.fault != nil && conf.fault.off == f.off {
			return c.conclude(OpWrite, conf.fault.kind, f.off, conf, first)
		}
	}
	if pos, o := c.locate(len(c.input)); pos >= 0 {
		kind, off := KindPartialWrite, pos
		if o.fault != nil {
			kind, off = o.fault.kind, o.fault.off
		}
		return c.conclude(OpWrite, kind, off, o, first)
	}
	return c.inconclusive(OpWrite, first)
}

// locate finds the leftmost split position in [1, n-1] whose probe fails,
// or -1 when none does. The bisect is an optimization for the common case
// of a single defect, where failing positions form a suffix; whenever its
// observations contradict that shape it abandons the attempt and the linear
// scan, which needs no assumption, decides.
func (c *checker) locate(n int) (int, *outcome) {
	if n >= 2 && !c.opts.LinearScan {
		if pos, o, ok := c.bisect(n); ok {
			return pos, o
		}
	}
	for pos := 1; pos < n; pos++ {
		if o := c.probeAt(pos); o.failed {
			return pos, o
		}
	}
	return -1, nil
}

func (c *checker) bisect(n int) (int, *outcome, bool) {
	if o := c.probeAt(n - 1); !o.failed {
		return 0, nil, false
	}
	lo, hi := 1, n-1
	for lo < hi {
		mid := lo + (hi-lo)/2
		if c.probeAt(mid).failed {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	o := c.probeAt(lo)
	if !o.failed {
		return 0, nil, false
	}
	// A failing left neighbor means the transition is not where the bisect
	// thinks: the failing set is not a suffix.
	if lo > 1 && c.probeAt(lo-1).failed {
		return 0, nil, false
	}
	return lo, o, true
}

func (c *checker) conclude(op Op, kind Kind, off int, o, first *outcome) *Report {
	rep := &Report{
		Op:           op,
		Kind:         kind,
		Offset:       off,
		Probes:       c.probes,
		Calls:        o.calls,
		Cause:        o.cause,
		Site:         o.site,
		sitesEnabled: c.opts.CallSites,
	}
	if o != first && differentCause(first.cause, o.cause) {
		rep.firstCause = first.cause
	}
	return rep
}

func (c *checker) inconclusive(op Op, first *outcome) *Report {
	return &Report{
		Op:           op,
		Kind:         KindInconclusive,
		Offset:       -1,
		Probes:       c.probes,
		Calls:        first.calls,
		Cause:        first.cause,
		Site:         first.site,
		sitesEnabled: c.opts.CallSites,
	}
}

// differentCause reports whether two failures would read differently to a
// human; the note about a diverging byte-granular run keys off it.
func differentCause(a, b error) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return a.Error() != b.Error()
}

// panicError carries a recovered panic value as an error.
type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
