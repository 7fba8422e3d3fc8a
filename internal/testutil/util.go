// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package testutil

import (
	"encoding/hex"
	"testing"

	. "gopkg.in/check.v1"
)

// DecodeHexString decodes the supplied hex string in to a byte slice.
func DecodeHexString(c *C, s string) []byte {
	b, err := hex.DecodeString(s)
	c.Assert(err, IsNil)
	return b
}

// DecodeHexStringT decodes the supplied hex string in to a byte slice.
func DecodeHexStringT(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return b
}
