// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

var (
	BuildCommandAuthArea    = buildCommandAuthArea
	ProcessResponseAuthArea = processResponseAuthArea
	CommandReturnsHandle    = commandReturnsHandle
)

// MockReadRandom overrides the random source used to generate session
// nonces, returning a function to restore the original.
func MockReadRandom(fn func([]byte) (int, error)) (restore func()) {
	orig := readRandom
	readRandom = fn
	return func() {
		readRandom = orig
	}
}
