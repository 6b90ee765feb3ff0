// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iocheck

import "errors"

var (
	// ErrInvalidArgument reports a nil closure or invalid configuration.
	ErrInvalidArgument = errors.New("iocheck: invalid argument")

	// ErrDefect classifies reports that localize a partial-transfer defect
	// to a concrete stream offset. errors.Is(err, ErrDefect) matches every
	// such report.
	ErrDefect = errors.New("iocheck: partial transfer mishandled")

	// ErrInconclusive classifies reports where the code under test failed
	// but no single boundary position reproduces the failure, so no offset
	// can honestly be blamed.
	ErrInconclusive = errors.New("iocheck: failure not attributable to a boundary")
)
