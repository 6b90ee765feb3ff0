// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iocheck

import (
	"fmt"
	"strings"

	"code.hybscloud.com/iocheck/internal/stack"
)

// Op identifies the stream direction a report concerns.
type Op uint8

const (
	OpRead  Op = 1
	OpWrite Op = 2
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Kind classifies what a report localized.
type Kind uint8

const (
	// KindPartialRead marks a read path that breaks when a call returns
	// fewer bytes than requested.
	KindPartialRead Kind = 1

	// KindPartialWrite marks a write path that treats a short write as
	// complete instead of resuming it.
	KindPartialWrite Kind = 2

	// KindUnexpectedData marks written bytes that diverge from the expected
	// output, including writes past its end.
	KindUnexpectedData Kind = 3

	// KindShortOutput marks a write path that stops before producing the
	// whole expected output.
	KindShortOutput Kind = 4

	// KindInconclusive marks a failure that no single boundary position
	// reproduces.
	KindInconclusive Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindPartialRead:
		return "partial read"
	case KindPartialWrite:
		return "partial write"
	case KindUnexpectedData:
		return "unexpected data"
	case KindShortOutput:
		return "short output"
	case KindInconclusive:
		return "inconclusive"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Frame is one resolved call-site frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// CallSite is the stack of the stream call most likely at fault, innermost
// first, with instrumentation and stdlib transfer loops already filtered out.
type CallSite struct {
	Frames []Frame
}

func (s *CallSite) String() string {
	var b strings.Builder
	for i, f := range s.Frames {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "\t%s\n\t\t%s:%d", f.Function, f.File, f.Line)
	}
	return b.String()
}

// Report describes one localized defect. It is returned as an error by
// CheckRead and CheckWrite; errors.Is matches it against ErrDefect or
// ErrInconclusive, and errors.Is/As reach the underlying Cause.
type Report struct {
	// Op tells which direction was checked.
	Op Op

	// Kind classifies the defect.
	Kind Kind

	// Offset is the boundary position that provokes the failure: the
	// leftmost failing split for reads, the first mishandled byte for
	// writes. It is -1 when Kind is KindInconclusive.
	Offset int

	// Probes counts the delivery patterns run during the search.
	Probes int

	// Calls counts the stream calls made by the decisive probe.
	Calls int

	// Cause is the failure observed by the decisive probe: the error the
	// closure returned, the panic it raised, or the stream's own
	// verification fault.
	Cause error

	// Site is the most likely culprit call, nil when none was captured.
	Site *CallSite

	firstCause   error // byte-granular failure, kept when it differs from Cause
	sitesEnabled bool
}

func (r *Report) Error() string {
	var b strings.Builder
	if r.Kind == KindInconclusive {
		fmt.Fprintf(&b, "iocheck: %s failed under byte-granular delivery but no boundary position reproduces it", r.Op)
	} else {
		fmt.Fprintf(&b, "iocheck: %s mishandles a boundary at offset %d (%s)", r.Op, r.Offset, r.Kind)
	}
	if r.Cause != nil {
		fmt.Fprintf(&b, ": %s", causeText(r.Cause))
	}
	if r.firstCause != nil {
		fmt.Fprintf(&b, "\nnote: the byte-granular run failed differently: %s", causeText(r.firstCause))
	}
	if r.Site != nil {
		b.WriteString("\nmost likely culprit:\n")
		b.WriteString(r.Site.String())
	} else if r.sitesEnabled && r.Kind != KindInconclusive {
		b.WriteString("\nno single stream call is suspect")
	}
	return b.String()
}

// Unwrap exposes the classification sentinel and the observed causes, so
// errors.Is(err, ErrDefect) and errors.Is(err, io.ErrUnexpectedEOF) both
// work on a report whose closure bubbled an unexpected EOF.
func (r *Report) Unwrap() []error {
	errs := make([]error, 0, 3)
	if r.Kind == KindInconclusive {
		errs = append(errs, ErrInconclusive)
	} else {
		errs = append(errs, ErrDefect)
	}
	if r.Cause != nil {
		errs = append(errs, r.Cause)
	}
	if r.firstCause != nil {
		errs = append(errs, r.firstCause)
	}
	return errs
}

// causeText renders a report cause without repeating the package prefix
// when the cause is one of our own stream faults.
func causeText(err error) string {
	if f, ok := err.(*fault); ok {
		return f.detail
	}
	return err.Error()
}

// fault is a verification failure raised by an instrumented stream: Writer
// panics with one the moment written data can no longer be correct, and
// Verify returns one when output ends short. It unwraps to ErrDefect.
type fault struct {
	op     Op
	kind   Kind
	off    int
	detail string
	site   *CallSite
}

func (f *fault) Error() string { return "iocheck: " + f.detail }

func (f *fault) Unwrap() error { return ErrDefect }

// recorder tracks the stream call currently suspected of mishandling a
// boundary. Capture happens on every suspect call; resolving to symbolic
// frames is deferred to site(). The nop implementation keeps disabled
// capture free of cost.
type recorder interface {
	capture()
	erase()
	site() *CallSite
}

type nopRecorder struct{}

func (nopRecorder) capture()        {}
func (nopRecorder) erase()          {}
func (nopRecorder) site() *CallSite { return nil }

type stackRecorder struct {
	t stack.Trace
}

func (r *stackRecorder) capture() { r.t = stack.Capture(0) }

func (r *stackRecorder) erase() { r.t = stack.Trace{} }

func (r *stackRecorder) site() *CallSite {
	if r.t.Empty() {
		return nil
	}
	resolved := r.t.Resolve()
	if len(resolved) == 0 {
		return nil
	}
	frames := make([]Frame, len(resolved))
	for i, fr := range resolved {
		frames[i] = Frame{Function: fr.Function, File: fr.File, Line: fr.Line}
	}
	return &CallSite{Frames: frames}
}

func newRecorder(o *Options) recorder {
	if o.CallSites {
		return &stackRecorder{}
	}
	return nopRecorder{}
}
