// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scramble poisons buffer regions that a stream call does not fill.
//
// A consumer that trusts a single Read to fill its whole buffer would often
// get away with it against zero-initialized memory. Poisoning the unfilled
// region with values guaranteed to differ from the data that belongs there
// makes such under-reads visible the moment the consumer interprets them.
package scramble

// Sentinel fills positions that have no corresponding true byte.
const Sentinel = 0xA5

// Fill poisons dst position-wise against truth: dst[i] becomes the bit-flip
// of truth[i], which can never equal it. Positions beyond len(truth) carry
// Sentinel. Fill is a pure function of position and expected value; it keeps
// no state between calls.
func Fill(dst, truth []byte) {
	for i := range dst {
		if i < len(truth) {
			dst[i] = ^truth[i]
		} else {
			dst[i] = Sentinel
		}
	}
}
