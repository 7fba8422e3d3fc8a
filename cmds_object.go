// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"github.com/utpm/go-tss/mu"
)

// Create executes the TPM2_Create command to create a new ordinary object
// as a child of the storage parent associated with parentHandle, which
// requires authorization with the supplied session.
//
// The inPublic argument is the wire representation of the template for the
// new object. The outsideInfo and creationPCR arguments associate creation
// data with the object and may be empty.
func (t *TSSContext) Create(parentHandle Handle, inSensitive *SensitiveCreate, inPublic PublicBlob, outsideInfo Data, creationPCR PCRSelectionList, session *Session) (Private, PublicBlob, CreationDataBlob, Digest, *TkCreation, error) {
	if inSensitive == nil {
		inSensitive = &SensitiveCreate{}
	}

	var outPrivate Private
	var outPublic PublicBlob
	var creationData CreationDataBlob
	var creationHash Digest
	var creationTicket TkCreation

	if err := t.RunCommand(CommandCreate, []*Session{session},
		parentHandle,
		Delimiter,
		mu.Sized(inSensitive), inPublic, outsideInfo, creationPCR,
		Delimiter, Delimiter,
		&outPrivate, &outPublic, &creationData, &creationHash, &creationTicket); err != nil {
		return nil, nil, nil, nil, nil, err
	}

	return outPrivate, outPublic, creationData, creationHash, &creationTicket, nil
}

// CreatePrimary executes the TPM2_CreatePrimary command to create a new
// primary object in the hierarchy named by primaryHandle, which requires
// authorization with the supplied session.
//
// On success the handle of the new transient object is returned along with
// its public area and creation data.
func (t *TSSContext) CreatePrimary(primaryHandle Handle, inSensitive *SensitiveCreate, inPublic PublicBlob, outsideInfo Data, creationPCR PCRSelectionList, session *Session) (Handle, PublicBlob, CreationDataBlob, Digest, *TkCreation, error) {
	if inSensitive == nil {
		inSensitive = &SensitiveCreate{}
	}

	var objectHandle Handle
	var outPublic PublicBlob
	var creationData CreationDataBlob
	var creationHash Digest
	var creationTicket TkCreation

	if err := t.RunCommand(CommandCreatePrimary, []*Session{session},
		primaryHandle,
		Delimiter,
		mu.Sized(inSensitive), inPublic, outsideInfo, creationPCR,
		Delimiter,
		&objectHandle,
		Delimiter,
		&outPublic, &creationData, &creationHash, &creationTicket); err != nil {
		return HandleUnassigned, nil, nil, nil, nil, err
	}

	return objectHandle, outPublic, creationData, creationHash, &creationTicket, nil
}

// Load executes the TPM2_Load command to load both the public and private
// portions of an object previously created with Create into the TPM, and
// returns the handle of the loaded object along with its name. The
// parentHandle argument requires authorization with the supplied session.
func (t *TSSContext) Load(parentHandle Handle, inPrivate Private, inPublic PublicBlob, session *Session) (Handle, Name, error) {
	var objectHandle Handle
	var name Name

	if err := t.RunCommand(CommandLoad, []*Session{session},
		parentHandle,
		Delimiter,
		inPrivate, inPublic,
		Delimiter,
		&objectHandle,
		Delimiter,
		&name); err != nil {
		return HandleUnassigned, nil, err
	}

	return objectHandle, name, nil
}

// ReadPublic executes the TPM2_ReadPublic command to return the public area
// of the object associated with objectHandle, along with its name and
// qualified name.
func (t *TSSContext) ReadPublic(objectHandle Handle) (PublicBlob, Name, Name, error) {
	var outPublic PublicBlob
	var name Name
	var qualifiedName Name

	if err := t.RunCommand(CommandReadPublic, nil,
		objectHandle,
		Delimiter, Delimiter, Delimiter,
		&outPublic, &name, &qualifiedName); err != nil {
		return nil, nil, nil, err
	}

	return outPublic, name, qualifiedName, nil
}

// Import executes the TPM2_Import command to prepare an object created
// outside of the TPM or duplicated from another TPM so that it can be
// loaded under the storage parent associated with parentHandle, which
// requires authorization with the supplied session. A nil symmetricAlg
// indicates that the inner wrapper is not encrypted.
func (t *TSSContext) Import(parentHandle Handle, encryptionKey Data, objectPublic PublicBlob, duplicate Private, inSymSeed EncryptedSecret, symmetricAlg *SymDef, session *Session) (Private, error) {
	if symmetricAlg == nil {
		symmetricAlg = &SymDef{Algorithm: AlgorithmNull}
	}

	var outPrivate Private

	if err := t.RunCommand(CommandImport, []*Session{session},
		parentHandle,
		Delimiter,
		encryptionKey, objectPublic, duplicate, inSymSeed, symmetricAlg,
		Delimiter, Delimiter,
		&outPrivate); err != nil {
		return nil, err
	}

	return outPrivate, nil
}

// ActivateCredential executes the TPM2_ActivateCredential command to
// release the credential in credentialBlob, which was protected to the key
// associated with keyHandle for the object associated with activateHandle.
// Both handles require authorization, provided by activateSession and
// keySession respectively.
func (t *TSSContext) ActivateCredential(activateHandle, keyHandle Handle, credentialBlob IDObjectBlob, secret EncryptedSecret, activateSession, keySession *Session) (Digest, error) {
	var certInfo Digest

	if err := t.RunCommand(CommandActivateCredential, []*Session{activateSession, keySession},
		activateHandle, keyHandle,
		Delimiter,
		credentialBlob, secret,
		Delimiter, Delimiter,
		&certInfo); err != nil {
		return nil, err
	}

	return certInfo, nil
}
