// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"github.com/golang/glog"
)

// Hash executes the TPM2_Hash command to compute the digest of the supplied
// data with the specified algorithm. If the data object has the TPM_GENERATED
// prefix then a NULL ticket is returned, else a validation ticket rooted in
// the specified hierarchy is returned along with the digest.
func (t *TSSContext) Hash(data MaxBuffer, hashAlg HashAlgorithmId, hierarchy Handle) (Digest, *TkHashcheck, error) {
	var outHash Digest
	var validation TkHashcheck

	if err := t.RunCommand(CommandHash, nil,
		Delimiter,
		data, hashAlg, hierarchy,
		Delimiter, Delimiter,
		&outHash, &validation); err != nil {
		return nil, nil, err
	}

	return outHash, &validation, nil
}

// HMAC executes the TPM2_HMAC command to compute a keyed hash of buffer with
// the key associated with handle, which requires authorization with the
// supplied session. If hashAlg is HashAlgorithmNull then the digest algorithm
// of the key's scheme is used.
func (t *TSSContext) HMAC(handle Handle, buffer MaxBuffer, hashAlg HashAlgorithmId, session *Session) (Digest, error) {
	var outHMAC Digest

	if err := t.RunCommand(CommandHMAC, []*Session{session},
		handle,
		Delimiter,
		buffer, hashAlg,
		Delimiter, Delimiter,
		&outHMAC); err != nil {
		return nil, err
	}

	return outHMAC, nil
}

// HashSequenceStart executes the TPM2_HashSequenceStart command to begin a
// hash sequence with the specified algorithm, returning the handle of the
// new sequence object. The auth value, if supplied, is required to use the
// returned sequence object.
func (t *TSSContext) HashSequenceStart(auth Auth, hashAlg HashAlgorithmId) (Handle, error) {
	var sequenceHandle Handle

	if err := t.RunCommand(CommandHashSequenceStart, nil,
		Delimiter,
		auth, hashAlg,
		Delimiter,
		&sequenceHandle); err != nil {
		return HandleUnassigned, err
	}

	return sequenceHandle, nil
}

// HMACStart executes the TPM2_HMAC_Start command to begin a HMAC sequence
// keyed with the key associated with handle, which requires authorization
// with the supplied session. It returns the handle of the new sequence
// object.
func (t *TSSContext) HMACStart(handle Handle, auth Auth, hashAlg HashAlgorithmId, session *Session) (Handle, error) {
	var sequenceHandle Handle

	if err := t.RunCommand(CommandHMACStart, []*Session{session},
		handle,
		Delimiter,
		auth, hashAlg,
		Delimiter,
		&sequenceHandle); err != nil {
		return HandleUnassigned, err
	}

	return sequenceHandle, nil
}

// SequenceUpdate executes the TPM2_SequenceUpdate command to add data to the
// sequence associated with sequenceHandle, which requires authorization with
// the supplied session.
func (t *TSSContext) SequenceUpdate(sequenceHandle Handle, buffer MaxBuffer, session *Session) error {
	return t.RunCommand(CommandSequenceUpdate, []*Session{session},
		sequenceHandle,
		Delimiter,
		buffer)
}

// SequenceComplete executes the TPM2_SequenceComplete command to add the
// final data to the sequence associated with sequenceHandle and return the
// result. The sequence object requires authorization with the supplied
// session, and is flushed on success.
func (t *TSSContext) SequenceComplete(sequenceHandle Handle, buffer MaxBuffer, hierarchy Handle, session *Session) (Digest, *TkHashcheck, error) {
	var result Digest
	var validation TkHashcheck

	if err := t.RunCommand(CommandSequenceComplete, []*Session{session},
		sequenceHandle,
		Delimiter,
		buffer, hierarchy,
		Delimiter, Delimiter,
		&result, &validation); err != nil {
		return nil, nil, err
	}

	return result, &validation, nil
}

// HashData computes the digest of data with the specified algorithm in the
// null hierarchy. Data longer than the TPM's input buffer is processed with
// a hash sequence, streaming one full input buffer per update.
func (t *TSSContext) HashData(data []byte, hashAlg HashAlgorithmId) (Digest, error) {
	maxInput, err := t.InputBufferSize()
	if err != nil {
		return nil, err
	}

	if len(data) <= maxInput {
		digest, _, err := t.Hash(MaxBuffer(data), hashAlg, HandleNull)
		return digest, err
	}

	seqHandle, err := t.HashSequenceStart(nil, hashAlg)
	if err != nil {
		return nil, err
	}

	// The sequence object was created with an empty auth value.
	session := NewPasswordSession(nil)

	remaining := data
	for {
		if err := t.SequenceUpdate(seqHandle, MaxBuffer(remaining[:maxInput]), session); err != nil {
			return nil, err
		}
		remaining = remaining[maxInput:]
		if len(remaining) <= maxInput {
			break
		}
	}

	digest, _, err := t.SequenceComplete(seqHandle, MaxBuffer(remaining), HandleNull, session)
	return digest, err
}

// HMACData is a convenience wrapper around TSSContext.HMAC that computes a
// keyed hash of data with the digest algorithm of the key's scheme. Data
// larger than MaxDigestBuffer is rejected with ErrorSize.
func (t *TSSContext) HMACData(session *Session, handle Handle, data []byte) (Digest, error) {
	if len(data) > MaxDigestBuffer {
		glog.Errorf("data size (%d) exceeds maximum buffer size (%d)", len(data), MaxDigestBuffer)
		return nil, &TPMError{Command: CommandHMAC, Code: ErrorSize}
	}

	return t.HMAC(handle, MaxBuffer(data), HashAlgorithmNull, session)
}
