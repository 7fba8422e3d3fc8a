// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

// Transport represents a communication channel to a TPM implementation.
type Transport interface {
	// Read is used to receive a response to a previously transmitted command.
	// Implementations should support partial reading of a response.
	Read(p []byte) (int, error)

	// Write is used to transmit a serialized command to the TPM implementation.
	// The command is always supplied in a single write.
	Write(p []byte) (int, error)

	// Close closes the transport.
	Close() error
}
