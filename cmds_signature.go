// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"fmt"

	"github.com/golang/glog"
)

// Sign executes the TPM2_Sign command to sign the supplied digest with the
// key associated with keyHandle, which requires authorization with the
// supplied session.
//
// A nil inScheme selects the key's own signing scheme. A nil validation
// substitutes the null hashcheck ticket, which is sufficient for keys that
// are not restricted.
func (t *TSSContext) Sign(keyHandle Handle, digest Digest, inScheme *SigScheme, validation *TkHashcheck, session *Session) (*Signature, error) {
	if inScheme == nil {
		inScheme = &SigScheme{Scheme: AlgorithmNull}
	}
	if validation == nil {
		validation = &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull}
	}

	var signature Signature

	if err := t.RunCommand(CommandSign, []*Session{session},
		keyHandle,
		Delimiter,
		digest, inScheme, validation,
		Delimiter, Delimiter,
		&signature); err != nil {
		return nil, err
	}

	return &signature, nil
}

// SignData computes a keyed hash of data with the HMAC key associated with
// keyHandle and copies the result to sig. The keyHandle argument requires
// authorization with the supplied session.
//
// The returned length is the size of the produced digest. If sig is smaller
// than the digest, nothing is computed or copied - the required length is
// returned so the caller can retry with a larger buffer.
//
// Data longer than the TPM's input buffer is processed with an HMAC
// sequence, streaming one full input buffer per update.
func (t *TSSContext) SignData(session *Session, keyHandle Handle, hashAlg HashAlgorithmId, data, sig []byte) (int, error) {
	if !hashAlg.Supported() {
		return 0, makeInvalidArgError("hashAlg", "unsupported digest algorithm")
	}

	sigSize := hashAlg.Size()
	if len(sig) < sigSize {
		glog.Errorf("signature buffer size (%d) is less than required size (%d)", len(sig), sigSize)
		return sigSize, nil
	}

	maxInput, err := t.InputBufferSize()
	if err != nil {
		return 0, err
	}

	var digest Digest
	digestCommand := CommandHMAC

	if len(data) > maxInput {
		digestCommand = CommandSequenceComplete

		seqHandle, err := t.HMACStart(keyHandle, nil, hashAlg, session)
		if err != nil {
			return 0, err
		}

		// The length check above guarantees at least one full chunk.
		remaining := data
		for {
			if err := t.SequenceUpdate(seqHandle, MaxBuffer(remaining[:maxInput]), session); err != nil {
				return 0, err
			}
			remaining = remaining[maxInput:]
			if len(remaining) <= maxInput {
				break
			}
		}

		digest, _, err = t.SequenceComplete(seqHandle, MaxBuffer(remaining), HandleNull, session)
		if err != nil {
			return 0, err
		}
	} else {
		digest, err = t.HMAC(keyHandle, MaxBuffer(data), HashAlgorithmNull, session)
		if err != nil {
			return 0, err
		}
	}

	if len(digest) < sigSize {
		return 0, &InvalidResponseError{digestCommand,
			fmt.Sprintf("insufficient digest size (got %d, expected %d)", len(digest), sigSize)}
	}

	copy(sig, digest[:sigSize])
	return sigSize, nil
}
