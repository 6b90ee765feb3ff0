// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iocheck

// Options configures checking behavior.
type Options struct {
	// CallSites enables capturing the stack of the stream call most likely
	// at fault, for inclusion in reports. Disable it in hot fuzzing loops
	// where capture cost dominates.
	CallSites bool

	// LinearScan forces the boundary search to probe split positions one by
	// one from the left instead of bisecting. Slower, but makes no
	// assumption about how failures are distributed.
	LinearScan bool

	// WouldBlock attaches iox.ErrWouldBlock to every partial read delivery,
	// so decode paths written against non-blocking transports are exercised
	// on their retry branch as well. Code under test must treat it as
	// retryable; surfacing it as a failure is itself reported as a defect.
	// Writes always carry it on partial accepts, as the io.Writer contract
	// requires an error there.
	WouldBlock bool

	// SplitAt pins directly constructed streams to a single two-chunk
	// boundary at the given offset. Negative selects byte-granular
	// delivery. CheckRead and CheckWrite drive boundaries themselves and
	// ignore this field.
	SplitAt int
}

var defaultOptions = Options{
	CallSites: true,
	SplitAt:   -1, // default: byte-granular delivery
}

type Option func(*Options)

// WithCallSites enables call-site capture. It is the default.
func WithCallSites() Option {
	return func(o *Options) { o.CallSites = true }
}

// WithoutCallSites disables call-site capture; reports then carry offsets
// and causes only.
func WithoutCallSites() Option {
	return func(o *Options) { o.CallSites = false }
}

// WithLinearScan forces the position-by-position boundary search.
func WithLinearScan() Option {
	return func(o *Options) { o.LinearScan = true }
}

// WithWouldBlock injects iox.ErrWouldBlock alongside partially served reads.
func WithWouldBlock() Option {
	return func(o *Options) { o.WouldBlock = true }
}

// WithSplit makes NewReader and NewWriter deliver the stream in two chunks
// split at pos. A negative pos restores byte-granular delivery.
func WithSplit(pos int) Option {
	return func(o *Options) { o.SplitAt = pos }
}
