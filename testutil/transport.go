// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package testutil

import (
	"bytes"
	"io"
)

// ScriptedTransport is a transport for testing that serves canned response
// packets from a script instead of communicating with a TPM device. Commands
// written to it are recorded and can be inspected with CommandLog.
type ScriptedTransport struct {
	// RequireStartup indicates that the device behind this transport
	// requires a TPM2_Startup command, like a simulator that has just
	// been powered on.
	RequireStartup bool

	// WriteError, if set, is returned by the next call to Write.
	WriteError error

	// ReadError, if set, is returned by the next call to Read.
	ReadError error

	responses [][]byte
	commands  [][]byte
	current   *bytes.Reader
	closed    bool
}

// NewScriptedTransport returns a new ScriptedTransport that will serve the
// supplied response packets in order, one per command.
func NewScriptedTransport(responses ...[]byte) *ScriptedTransport {
	return &ScriptedTransport{responses: responses}
}

// QueueResponse appends a response packet to the script.
func (t *ScriptedTransport) QueueResponse(response []byte) {
	t.responses = append(t.responses, response)
}

// CommandLog returns the command packets written to this transport, in
// order.
func (t *ScriptedTransport) CommandLog() [][]byte {
	return t.commands
}

// Closed indicates whether Close has been called.
func (t *ScriptedTransport) Closed() bool {
	return t.closed
}

func (t *ScriptedTransport) Read(data []byte) (int, error) {
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.current == nil || t.current.Len() == 0 {
		if len(t.responses) == 0 {
			return 0, io.EOF
		}
		t.current = bytes.NewReader(t.responses[0])
		t.responses = t.responses[1:]
	}

	return t.current.Read(data)
}

func (t *ScriptedTransport) Write(data []byte) (int, error) {
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	command := make([]byte, len(data))
	copy(command, data)
	t.commands = append(t.commands, command)
	return len(data), nil
}

func (t *ScriptedTransport) Close() error {
	t.closed = true
	return nil
}

// NeedsStartup implements the optional startup hint consumed by
// NewTSSContext, returning the value of the RequireStartup field.
func (t *ScriptedTransport) NeedsStartup() bool {
	return t.RequireStartup
}
