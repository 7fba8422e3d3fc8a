// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"crypto"
	"fmt"
	"io"

	"github.com/utpm/go-tss/mu"
)

// Handle corresponds to the TPM_HANDLE type, and is a numeric identifier
// that references a resource on the TPM.
type Handle uint32

// Type returns the type of the handle.
func (h Handle) Type() HandleType {
	return HandleType(h >> 24)
}

// HandleType corresponds to the TPM_HT type, and is used to identify the
// type of a Handle.
type HandleType uint8

// BaseHandle returns the first handle for the handle type.
func (h HandleType) BaseHandle() Handle {
	return Handle(h) << 24
}

// HandleList is a list of handles. In a command buffer handles appear as a
// raw sequence of 32-bit values with no count field.
type HandleList []Handle

// CommandCode corresponds to the TPM_CC type.
type CommandCode uint32

// ResponseCode corresponds to the TPM_RC type.
type ResponseCode uint32

const (
	// The lower 7 bits of format-zero response codes are the error number.
	responseCodeE0 ResponseCode = 0x7f

	// The lower 6 bits of format-one response codes are the error number.
	responseCodeE1 ResponseCode = 0x3f

	// Bit 6 of format-one codes is set for errors associated with a
	// parameter, and clear for errors associated with a handle or session.
	responseCodeP ResponseCode = 1 << 6

	// Bit 7 selects between format-zero (clear) and format-one (set) codes.
	responseCodeF ResponseCode = 1 << 7

	// Bit 8 of format-zero codes is set for TPM2 codes and clear for
	// TPM1.2 codes.
	responseCodeV ResponseCode = 1 << 8

	// Bit 10 of format-zero codes is set for vendor defined codes.
	responseCodeT ResponseCode = 1 << 10

	// Bit 11 of format-zero codes is set for warnings.
	responseCodeS ResponseCode = 1 << 11

	responseCodeIndexShift uint = 8

	// Bits 8 to 11 of format-one codes are the parameter number if P is
	// set, or the handle or session number otherwise.
	responseCodeN ResponseCode = 0xf << responseCodeIndexShift
)

// E returns the error number of the response code.
func (rc ResponseCode) E() uint8 {
	if rc.F() {
		return uint8(rc & responseCodeE1)
	}
	return uint8(rc & responseCodeE0)
}

// F indicates whether this is a format-one response code.
func (rc ResponseCode) F() bool {
	return rc&responseCodeF != 0
}

// V indicates whether a format-zero response code is a TPM2 code.
func (rc ResponseCode) V() bool {
	return rc&responseCodeV != 0
}

// T indicates whether a format-zero response code is vendor defined.
func (rc ResponseCode) T() bool {
	return rc&responseCodeT != 0
}

// S indicates whether a format-zero response code is a warning.
func (rc ResponseCode) S() bool {
	return rc&responseCodeS != 0
}

// P indicates whether a format-one response code is associated with a
// command parameter.
func (rc ResponseCode) P() bool {
	return rc&responseCodeP != 0
}

// N returns the index field of a format-one response code.
func (rc ResponseCode) N() uint8 {
	return uint8((rc & responseCodeN) >> responseCodeIndexShift)
}

// StructTag corresponds to the TPM_ST type.
type StructTag uint16

// StartupType corresponds to the TPM_SU type.
type StartupType uint16

// SessionType corresponds to the TPM_SE type.
type SessionType uint8

// SessionAttributes corresponds to the TPMA_SESSION type, and is the set of
// attribute flags carried in a session's authorization records.
type SessionAttributes uint8

const (
	// AttrContinueSession requests that the session is not flushed by the
	// TPM after a successful use.
	AttrContinueSession SessionAttributes = 1 << 0

	// AttrAuditExclusive requests that a command is only executed if the
	// audit session is exclusive.
	AttrAuditExclusive SessionAttributes = 1 << 1

	// AttrAuditReset requests that the audit digest is reset.
	AttrAuditReset SessionAttributes = 1 << 2

	// AttrCommandEncrypt indicates that the first command parameter is
	// encrypted.
	AttrCommandEncrypt SessionAttributes = 1 << 5

	// AttrResponseEncrypt indicates that the first response parameter is
	// encrypted.
	AttrResponseEncrypt SessionAttributes = 1 << 6

	// AttrAudit indicates that the session is used for audit.
	AttrAudit SessionAttributes = 1 << 7
)

// Capability corresponds to the TPM_CAP type.
type Capability uint32

// Property corresponds to the TPM_PT type.
type Property uint32

// AlgorithmId corresponds to the TPM_ALG_ID type.
type AlgorithmId uint16

// HashAlgorithmId corresponds to the TPM_ALG_ID type for hash algorithms.
type HashAlgorithmId AlgorithmId

// GetHash returns the equivalent crypto.Hash value for this algorithm if one
// exists, and 0 if one does not exist.
func (a HashAlgorithmId) GetHash() crypto.Hash {
	switch a {
	case HashAlgorithmSHA1:
		return crypto.SHA1
	case HashAlgorithmSHA256:
		return crypto.SHA256
	case HashAlgorithmSHA384:
		return crypto.SHA384
	case HashAlgorithmSHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// Supported determines if the TPM digest algorithm has an equivalent
// crypto.Hash.
func (a HashAlgorithmId) Supported() bool {
	return a.GetHash() != crypto.Hash(0)
}

// Size returns the size of the algorithm in bytes. It will panic if the
// algorithm is not supported - use Supported to check first.
func (a HashAlgorithmId) Size() int {
	h := a.GetHash()
	if h == crypto.Hash(0) {
		panic(fmt.Sprintf("unsupported digest algorithm %v", a))
	}
	return h.Size()
}

// Nonce corresponds to the TPM2B_NONCE type.
type Nonce []byte

// Auth corresponds to the TPM2B_AUTH type, and represents an authorization
// value.
type Auth []byte

// Digest corresponds to the TPM2B_DIGEST type.
type Digest []byte

// Data corresponds to the TPM2B_DATA type.
type Data []byte

// MaxBuffer corresponds to the TPM2B_MAX_BUFFER type. The maximum size of
// its payload is MaxDigestBuffer bytes.
type MaxBuffer []byte

// Timeout corresponds to the TPM2B_TIMEOUT type.
type Timeout []byte

// Name corresponds to the TPM2B_NAME type.
type Name []byte

// Private corresponds to the TPM2B_PRIVATE type, and carries the opaque
// encrypted private area of an object.
type Private []byte

// PublicBlob carries a TPM2B_PUBLIC structure in its wire representation.
// This package treats public areas as opaque - callers construct and
// interpret them with their own tooling.
type PublicBlob []byte

// EncryptedSecret corresponds to the TPM2B_ENCRYPTED_SECRET type.
type EncryptedSecret []byte

// IDObjectBlob carries a TPM2B_ID_OBJECT structure in its wire
// representation.
type IDObjectBlob []byte

// CreationDataBlob carries a TPM2B_CREATION_DATA structure in its wire
// representation.
type CreationDataBlob []byte

// SensitiveCreate corresponds to the TPMS_SENSITIVE_CREATE type. It is
// wrapped in a 16-bit size field (TPM2B_SENSITIVE_CREATE) on the wire.
type SensitiveCreate struct {
	UserAuth Auth
	Data     Data
}

// SymDef corresponds to the TPMT_SYM_DEF type. If Algorithm is
// AlgorithmNull, no key size or mode is present on the wire.
type SymDef struct {
	Algorithm AlgorithmId
	KeyBits   uint16
	Mode      AlgorithmId
}

// Marshal implements mu.CustomMarshaller.
func (d SymDef) Marshal(w io.Writer) error {
	if d.Algorithm == AlgorithmNull {
		_, err := mu.MarshalToWriter(w, d.Algorithm)
		return err
	}
	_, err := mu.MarshalToWriter(w, d.Algorithm, d.KeyBits, d.Mode)
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (d *SymDef) Unmarshal(r mu.Reader) error {
	if _, err := mu.UnmarshalFromReader(r, &d.Algorithm); err != nil {
		return err
	}
	if d.Algorithm == AlgorithmNull {
		d.KeyBits = 0
		d.Mode = 0
		return nil
	}
	_, err := mu.UnmarshalFromReader(r, &d.KeyBits, &d.Mode)
	return err
}

// SigScheme corresponds to the TPMT_SIG_SCHEME type for the schemes whose
// details are a single hash algorithm (HMAC, RSASSA, RSAPSS, ECDSA). If
// Scheme is AlgorithmNull, no details are present on the wire.
type SigScheme struct {
	Scheme  AlgorithmId
	HashAlg HashAlgorithmId
}

// Marshal implements mu.CustomMarshaller.
func (s SigScheme) Marshal(w io.Writer) error {
	if s.Scheme == AlgorithmNull {
		_, err := mu.MarshalToWriter(w, s.Scheme)
		return err
	}
	_, err := mu.MarshalToWriter(w, s.Scheme, s.HashAlg)
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (s *SigScheme) Unmarshal(r mu.Reader) error {
	if _, err := mu.UnmarshalFromReader(r, &s.Scheme); err != nil {
		return err
	}
	if s.Scheme == AlgorithmNull {
		s.HashAlg = 0
		return nil
	}
	_, err := mu.UnmarshalFromReader(r, &s.HashAlg)
	return err
}

// TkHashcheck corresponds to the TPMT_TK_HASHCHECK type.
type TkHashcheck struct {
	Tag       StructTag
	Hierarchy Handle
	Digest    Digest
}

// TkCreation corresponds to the TPMT_TK_CREATION type.
type TkCreation struct {
	Tag       StructTag
	Hierarchy Handle
	Digest    Digest
}

// TkAuth corresponds to the TPMT_TK_AUTH type.
type TkAuth struct {
	Tag       StructTag
	Hierarchy Handle
	Digest    Digest
}

// TaggedHash corresponds to the TPMT_HA type. The digest is not size
// prefixed on the wire - its length is implied by the algorithm.
type TaggedHash struct {
	HashAlg HashAlgorithmId
	Digest  []byte
}

// Marshal implements mu.CustomMarshaller.
func (h TaggedHash) Marshal(w io.Writer) error {
	if !h.HashAlg.Supported() {
		return &mu.InvalidSelectorError{Selector: h.HashAlg}
	}
	if len(h.Digest) != h.HashAlg.Size() {
		return fmt.Errorf("invalid digest size %d for algorithm %v", len(h.Digest), h.HashAlg)
	}
	_, err := mu.MarshalToWriter(w, h.HashAlg, mu.RawBytes(h.Digest))
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (h *TaggedHash) Unmarshal(r mu.Reader) error {
	if _, err := mu.UnmarshalFromReader(r, &h.HashAlg); err != nil {
		return err
	}
	if !h.HashAlg.Supported() {
		return &mu.InvalidSelectorError{Selector: h.HashAlg}
	}
	h.Digest = make([]byte, h.HashAlg.Size())
	_, err := io.ReadFull(r, h.Digest)
	return err
}

// SignatureRSA corresponds to the TPMS_SIGNATURE_RSA type.
type SignatureRSA struct {
	Hash HashAlgorithmId
	Sig  []byte
}

// SignatureECC corresponds to the TPMS_SIGNATURE_ECC type.
type SignatureECC struct {
	Hash       HashAlgorithmId
	SignatureR []byte
	SignatureS []byte
}

// Signature corresponds to the TPMT_SIGNATURE type. Exactly one of the
// detail fields is valid, selected by SigAlg; for AlgorithmNull none are.
type Signature struct {
	SigAlg AlgorithmId
	HMAC   *TaggedHash
	RSA    *SignatureRSA
	ECC    *SignatureECC
}

// Marshal implements mu.CustomMarshaller.
func (s Signature) Marshal(w io.Writer) error {
	if _, err := mu.MarshalToWriter(w, s.SigAlg); err != nil {
		return err
	}
	switch s.SigAlg {
	case AlgorithmHMAC:
		_, err := mu.MarshalToWriter(w, s.HMAC)
		return err
	case AlgorithmRSASSA, AlgorithmRSAPSS:
		_, err := mu.MarshalToWriter(w, s.RSA)
		return err
	case AlgorithmECDSA:
		_, err := mu.MarshalToWriter(w, s.ECC)
		return err
	case AlgorithmNull:
		return nil
	default:
		return &mu.InvalidSelectorError{Selector: s.SigAlg}
	}
}

// Unmarshal implements mu.CustomUnmarshaller.
func (s *Signature) Unmarshal(r mu.Reader) error {
	if _, err := mu.UnmarshalFromReader(r, &s.SigAlg); err != nil {
		return err
	}
	s.HMAC = nil
	s.RSA = nil
	s.ECC = nil
	switch s.SigAlg {
	case AlgorithmHMAC:
		s.HMAC = new(TaggedHash)
		_, err := mu.UnmarshalFromReader(r, s.HMAC)
		return err
	case AlgorithmRSASSA, AlgorithmRSAPSS:
		s.RSA = new(SignatureRSA)
		_, err := mu.UnmarshalFromReader(r, s.RSA)
		return err
	case AlgorithmECDSA:
		s.ECC = new(SignatureECC)
		_, err := mu.UnmarshalFromReader(r, s.ECC)
		return err
	case AlgorithmNull:
		return nil
	default:
		return &mu.InvalidSelectorError{Selector: s.SigAlg}
	}
}

// TaggedProperty corresponds to the TPMS_TAGGED_PROPERTY type.
type TaggedProperty struct {
	Property Property
	Value    uint32
}

// CapabilityData corresponds to the TPMS_CAPABILITY_DATA type. Only the
// TPM-properties capability is understood by this package; responses
// carrying any other capability fail to decode with a selector error.
type CapabilityData struct {
	Capability    Capability
	TPMProperties []TaggedProperty
}

// Marshal implements mu.CustomMarshaller.
func (d CapabilityData) Marshal(w io.Writer) error {
	if d.Capability != CapabilityTPMProperties {
		return &mu.InvalidSelectorError{Selector: d.Capability}
	}
	_, err := mu.MarshalToWriter(w, d.Capability, d.TPMProperties)
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (d *CapabilityData) Unmarshal(r mu.Reader) error {
	if _, err := mu.UnmarshalFromReader(r, &d.Capability); err != nil {
		return err
	}
	if d.Capability != CapabilityTPMProperties {
		return &mu.InvalidSelectorError{Selector: d.Capability}
	}
	_, err := mu.UnmarshalFromReader(r, &d.TPMProperties)
	return err
}

// PCRSelect is a list of PCR indexes, marshalled as a bitmap with an 8-bit
// size field.
type PCRSelect []int

// Marshal implements mu.CustomMarshaller.
func (d PCRSelect) Marshal(w io.Writer) error {
	b := make([]byte, 3)

	for _, i := range d {
		if i < 0 {
			return fmt.Errorf("invalid PCR index %d", i)
		}
		octet := i / 8
		for octet >= len(b) {
			b = append(b, byte(0))
		}
		bit := uint(i % 8)
		b[octet] |= 1 << bit
	}

	if _, err := mu.MarshalToWriter(w, uint8(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (d *PCRSelect) Unmarshal(r mu.Reader) error {
	var size uint8
	if _, err := mu.UnmarshalFromReader(r, &size); err != nil {
		return err
	}

	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return err
	}

	*d = nil
	for i, octet := range b {
		for bit := uint(0); bit < 8; bit++ {
			if octet&(1<<bit) == 0 {
				continue
			}
			*d = append(*d, int(bit)+(i*8))
		}
	}
	return nil
}

// PCRSelection corresponds to the TPMS_PCR_SELECTION type.
type PCRSelection struct {
	Hash   HashAlgorithmId
	Select PCRSelect
}

// PCRSelectionList corresponds to the TPML_PCR_SELECTION type.
type PCRSelectionList []PCRSelection
