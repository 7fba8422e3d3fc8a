// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"crypto/rand"

	"golang.org/x/xerrors"
)

// readRandom fills b with random bytes. It is a variable so that tests can
// supply deterministic nonces.
var readRandom = rand.Read

// StartAuthSession executes the TPM2_StartAuthSession command. The tpmKey
// and bind handles select the salt and bind entities - use HandleNull for
// an unsalted, unbound session. A nil symmetric argument requests no
// parameter encryption. On success the handle of the new session and the
// TPM's initial nonce are returned.
func (t *TSSContext) StartAuthSession(tpmKey, bind Handle, nonceCaller Nonce, encryptedSalt EncryptedSecret, sessionType SessionType, symmetric *SymDef, authHash HashAlgorithmId) (Handle, Nonce, error) {
	if symmetric == nil {
		symmetric = &SymDef{Algorithm: AlgorithmNull}
	}

	var sessionHandle Handle
	var nonceTPM Nonce

	if err := t.RunCommand(CommandStartAuthSession, nil,
		tpmKey, bind,
		Delimiter,
		nonceCaller, encryptedSalt, sessionType, symmetric, authHash,
		Delimiter,
		&sessionHandle,
		Delimiter,
		&nonceTPM); err != nil {
		return HandleUnassigned, nil, err
	}

	return sessionHandle, nonceTPM, nil
}

// NewAuthSession creates an unsalted, unbound authorization session of the
// specified type and returns a Session tracking it. A caller nonce of the
// digest length of authHash is generated randomly. The supplied attributes
// are applied to every command that uses the session.
//
// The session occupies TPM resources until it is flushed with FlushContext
// or used without AttrContinueSession.
func (t *TSSContext) NewAuthSession(sessionType SessionType, authHash HashAlgorithmId, attrs SessionAttributes) (*Session, error) {
	if !authHash.Supported() {
		return nil, makeInvalidArgError("authHash", "unsupported digest algorithm")
	}

	nonceCaller := make(Nonce, authHash.Size())
	if _, err := readRandom(nonceCaller); err != nil {
		return nil, xerrors.Errorf("cannot generate caller nonce: %w", err)
	}

	handle, nonceTPM, err := t.StartAuthSession(HandleNull, HandleNull, nonceCaller, nil, sessionType, nil, authHash)
	if err != nil {
		return nil, err
	}

	return &Session{
		In: AuthCommand{
			SessionHandle:     handle,
			Nonce:             nonceCaller,
			SessionAttributes: attrs},
		Out: AuthResponse{
			Nonce:             nonceTPM,
			SessionAttributes: attrs}}, nil
}
