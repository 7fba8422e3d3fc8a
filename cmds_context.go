// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"github.com/utpm/go-tss/mu"
)

// FlushContext executes the TPM2_FlushContext command to flush a transient
// object, sequence object or session from the TPM.
func (t *TSSContext) FlushContext(flushHandle Handle) error {
	return t.RunCommand(CommandFlushContext, nil, flushHandle)
}

// ContextLoad executes the TPM2_ContextLoad command to reload a previously
// saved object or session context, returning the handle at which it was
// loaded. The context argument is the wire representation of a TPMS_CONTEXT
// structure.
func (t *TSSContext) ContextLoad(context []byte) (Handle, error) {
	var loadedHandle Handle
	if err := t.RunCommand(CommandContextLoad, nil,
		Delimiter,
		// The context blob carries its own structure and is not size
		// prefixed.
		mu.RawBytes(context),
		Delimiter,
		&loadedHandle); err != nil {
		return HandleUnassigned, err
	}
	return loadedHandle, nil
}

// EvictControl executes the TPM2_EvictControl command. With a transient
// objectHandle it makes the object persistent at persistentHandle; with a
// persistent objectHandle it evicts the object. The auth handle is
// HandleOwner or HandlePlatform and requires authorization with the
// supplied session.
func (t *TSSContext) EvictControl(auth, objectHandle, persistentHandle Handle, session *Session) error {
	return t.RunCommand(CommandEvictControl, []*Session{session},
		auth, objectHandle,
		Delimiter,
		persistentHandle)
}
