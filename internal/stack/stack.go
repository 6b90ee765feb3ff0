// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stack captures call sites for diagnostic reports.
//
// Capture records raw program counters; resolution to symbolic frames is
// deferred until a report is actually rendered, so captures taken on every
// stream call stay cheap. Resolution drops the instrumentation layers that
// sit between the code under test and the stream, leaving the first frame
// pointing at the call that is the likely culprit.
package stack

import (
	"runtime"
	"strings"
)

// Frame is one resolved call-site frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Trace is an unresolved call-site snapshot. The zero value is empty.
type Trace struct {
	pcs []uintptr
}

const maxDepth = 64

// Capture snapshots the calling goroutine's stack. skip counts additional
// frames to drop beyond Capture itself; Capture(0) starts at its caller.
func Capture(skip int) Trace {
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return Trace{}
	}
	return Trace{pcs: append([]uintptr(nil), pcs[:n]...)}
}

// Empty reports whether the trace holds no frames.
func (t Trace) Empty() bool { return len(t.pcs) == 0 }

// Resolve maps the captured program counters to symbolic frames, filtering
// transport plumbing so the leading frame is the stream call's origin.
// Filtering is by function name rather than by frame count: inlining can
// collapse physical frames, but runtime.CallersFrames re-expands them with
// their true names.
func (t Trace) Resolve() []Frame {
	if len(t.pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(t.pcs)
	var out []Frame
	for {
		fr, more := frames.Next()
		if fr.Function != "" && !plumbing(fr.Function) {
			out = append(out, Frame{Function: fr.Function, File: fr.File, Line: fr.Line})
		}
		if !more {
			break
		}
	}
	return out
}

// plumbingPrefixes lists function-name prefixes that never identify the code
// under test: the instrumented streams themselves, capture machinery, the
// stdlib and iox transfer loops (io.ReadFull and friends retry correctly on
// their own, so the interesting frame is whoever invoked them), and test
// runner glue.
var plumbingPrefixes = []string{
	"code.hybscloud.com/iocheck.(*Reader).",
	"code.hybscloud.com/iocheck.(*Writer).",
	"code.hybscloud.com/iocheck.(*stackRecorder).",
	"code.hybscloud.com/iocheck/internal/stack.Capture",
	"code.hybscloud.com/iox.",
	"io.",
	"bufio.",
	"runtime.",
	"testing.",
}

func plumbing(fn string) bool {
	for _, p := range plumbingPrefixes {
		if strings.HasPrefix(fn, p) {
			return true
		}
	}
	return false
}
