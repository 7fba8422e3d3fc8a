// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"bytes"
	"fmt"

	"golang.org/x/xerrors"
)

// ResponseSuccess is the response code of a command that completed
// successfully.
const ResponseSuccess ResponseCode = 0

// ResponseBadTag is returned by a TPM that does not understand the command
// tag. A TPM1.2 device responds to a TPM2 command this way.
const ResponseBadTag ResponseCode = 0x1e

const (
	// commMediumMask selects the layer field of a response code produced
	// by an intermediate communication layer rather than the TPM.
	commMediumMask ResponseCode = 0xffff0000

	// commMediumValue is the layer value of communication-medium codes.
	// Codes of this form are already canonical and are never masked.
	commMediumValue ResponseCode = 0x80280000

	// fmt1CanonicalMask retains the format selector and the error number
	// of a format-one response code.
	fmt1CanonicalMask ResponseCode = responseCodeF | responseCodeE1

	// fmt0CanonicalMask retains the error number, version and severity
	// of a format-zero response code, discarding vendor and reserved
	// bits.
	fmt0CanonicalMask ResponseCode = responseCodeE0 | responseCodeV | responseCodeS
)

// CanonicalizeResponseCode strips the positional and reserved fields from a
// response code so that codes describing the same failure compare equal
// regardless of which handle, session or parameter triggered them.
// Communication-medium codes pass through unchanged, and the function is
// idempotent.
func CanonicalizeResponseCode(rc ResponseCode) ResponseCode {
	if rc == ResponseSuccess {
		return rc
	}
	if rc&commMediumMask == commMediumValue {
		return rc
	}
	if rc.F() {
		return rc & fmt1CanonicalMask
	}
	return rc & fmt0CanonicalMask
}

// IsCommMediumError indicates whether the response code was produced by an
// intermediate communication layer rather than the TPM itself.
func IsCommMediumError(rc ResponseCode) bool {
	return rc&commMediumMask == commMediumValue
}

const (
	// AnyCommandCode is used to match any command code when using
	// {As,Is}TPMError, {As,Is}TPMHandleError, {As,Is}TPMParameterError,
	// {As,Is}TPMSessionError and {As,Is}TPMWarning.
	AnyCommandCode CommandCode = 0xc0000000

	// AnyErrorCode is used to match any error code when using
	// {As,Is}TPMError, {As,Is}TPMHandleError, {As,Is}TPMParameterError
	// and {As,Is}TPMSessionError.
	AnyErrorCode ErrorCode = 0x100

	// AnyHandleIndex is used to match any handle when using
	// {As,Is}TPMHandleError.
	AnyHandleIndex int = -1

	// AnyParameterIndex is used to match any parameter when using
	// {As,Is}TPMParameterError.
	AnyParameterIndex int = -1

	// AnySessionIndex is used to match any session when using
	// {As,Is}TPMSessionError.
	AnySessionIndex int = -1

	// AnyWarningCode is used to match any warning code when using
	// {As,Is}TPMWarning.
	AnyWarningCode WarningCode = 0x80
)

// ErrorCode represents an error code from the TPM. Format-zero error
// numbers are used directly. Format-one error numbers are offset by
// errorCode1Start so that both families share one namespace.
type ErrorCode ResponseCode

const errorCode1Start ErrorCode = 0x80

const (
	ErrorInitialize      ErrorCode = 0x00
	ErrorFailure         ErrorCode = 0x01
	ErrorSequence        ErrorCode = 0x03
	ErrorDisabled        ErrorCode = 0x20
	ErrorExclusive       ErrorCode = 0x21
	ErrorAuthType        ErrorCode = 0x24
	ErrorAuthMissing     ErrorCode = 0x25
	ErrorPolicy          ErrorCode = 0x26
	ErrorPCR             ErrorCode = 0x27
	ErrorPCRChanged      ErrorCode = 0x28
	ErrorUpgrade         ErrorCode = 0x2d
	ErrorTooManyContexts ErrorCode = 0x2e
	ErrorAuthUnavailable ErrorCode = 0x2f
	ErrorReboot          ErrorCode = 0x30
	ErrorUnbalanced      ErrorCode = 0x31
	ErrorCommandSize     ErrorCode = 0x42
	ErrorCommandCode     ErrorCode = 0x43
	ErrorAuthsize        ErrorCode = 0x44
	ErrorAuthContext     ErrorCode = 0x45
	ErrorNVRange         ErrorCode = 0x46
	ErrorNVSize          ErrorCode = 0x47
	ErrorNVLocked        ErrorCode = 0x48
	ErrorNVAuthorization ErrorCode = 0x49
	ErrorNVUninitialized ErrorCode = 0x4a
	ErrorNVSpace         ErrorCode = 0x4b
	ErrorNVDefined       ErrorCode = 0x4c
	ErrorBadContext      ErrorCode = 0x50
	ErrorCpHash          ErrorCode = 0x51
	ErrorParent          ErrorCode = 0x52
	ErrorNeedsTest       ErrorCode = 0x53
	ErrorNoResult        ErrorCode = 0x54
	ErrorSensitive       ErrorCode = 0x55

	ErrorAsymmetric   ErrorCode = errorCode1Start + 0x01
	ErrorAttributes   ErrorCode = errorCode1Start + 0x02
	ErrorHash         ErrorCode = errorCode1Start + 0x03
	ErrorValue        ErrorCode = errorCode1Start + 0x04
	ErrorHierarchy    ErrorCode = errorCode1Start + 0x05
	ErrorKeySize      ErrorCode = errorCode1Start + 0x07
	ErrorMGF          ErrorCode = errorCode1Start + 0x08
	ErrorMode         ErrorCode = errorCode1Start + 0x09
	ErrorType         ErrorCode = errorCode1Start + 0x0a
	ErrorHandle       ErrorCode = errorCode1Start + 0x0b
	ErrorKDF          ErrorCode = errorCode1Start + 0x0c
	ErrorRange        ErrorCode = errorCode1Start + 0x0d
	ErrorAuthFail     ErrorCode = errorCode1Start + 0x0e
	ErrorNonce        ErrorCode = errorCode1Start + 0x0f
	ErrorPP           ErrorCode = errorCode1Start + 0x10
	ErrorScheme       ErrorCode = errorCode1Start + 0x12
	ErrorSize         ErrorCode = errorCode1Start + 0x15
	ErrorSymmetric    ErrorCode = errorCode1Start + 0x16
	ErrorTag          ErrorCode = errorCode1Start + 0x17
	ErrorSelector     ErrorCode = errorCode1Start + 0x18
	ErrorInsufficient ErrorCode = errorCode1Start + 0x1a
	ErrorSignature    ErrorCode = errorCode1Start + 0x1b
	ErrorKey          ErrorCode = errorCode1Start + 0x1c
	ErrorPolicyFail   ErrorCode = errorCode1Start + 0x1d
	ErrorIntegrity    ErrorCode = errorCode1Start + 0x1f
	ErrorTicket       ErrorCode = errorCode1Start + 0x20
	ErrorReservedBits ErrorCode = errorCode1Start + 0x21
	ErrorBadAuth      ErrorCode = errorCode1Start + 0x22
	ErrorExpired      ErrorCode = errorCode1Start + 0x23
	ErrorPolicyCC     ErrorCode = errorCode1Start + 0x24
	ErrorBinding      ErrorCode = errorCode1Start + 0x25
	ErrorCurve        ErrorCode = errorCode1Start + 0x26
	ErrorECCPoint     ErrorCode = errorCode1Start + 0x27
)

// WarningCode represents a response from the TPM that is not necessarily an
// error.
type WarningCode ResponseCode

const (
	WarningContextGap     WarningCode = 0x01
	WarningObjectMemory   WarningCode = 0x02
	WarningSessionMemory  WarningCode = 0x03
	WarningMemory         WarningCode = 0x04
	WarningSessionHandles WarningCode = 0x05
	WarningObjectHandles  WarningCode = 0x06
	WarningLocality       WarningCode = 0x07
	WarningYielded        WarningCode = 0x08
	WarningCanceled       WarningCode = 0x09
	WarningTesting        WarningCode = 0x0a
	WarningReferenceH0    WarningCode = 0x10
	WarningReferenceH1    WarningCode = 0x11
	WarningReferenceH2    WarningCode = 0x12
	WarningReferenceS0    WarningCode = 0x18
	WarningReferenceS1    WarningCode = 0x19
	WarningReferenceS2    WarningCode = 0x1a
	WarningNVRate         WarningCode = 0x20
	WarningLockout        WarningCode = 0x21
	WarningRetry          WarningCode = 0x22
	WarningNVUnavailable  WarningCode = 0x23
)

// TransportError is returned from any TSSContext method if communication
// with the device fails.
type TransportError struct {
	Op  string // The operation that caused the error
	err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot complete %s operation on transport: %v", e.Op, e.err)
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// InvalidResponseError is returned from any TSSContext method that executes
// a command if the device's response is invalid. An invalid response could
// be one that is shorter than the response header, one with an invalid
// responseSize field, a payload that is shorter than the responseSize field
// indicates, or a payload that unmarshals incorrectly.
//
// Any sessions used in the command that caused this error should be
// considered invalid.
type InvalidResponseError struct {
	Command CommandCode
	msg     string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("TPM returned an invalid response for command %s: %v", e.Command, e.msg)
}

// TPM1Error is returned from DecodeResponseCode and any TSSContext method
// that executes a command if the response code indicates an error from a
// TPM 1.2 device.
type TPM1Error struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPM1Error) Error() string {
	return fmt.Sprintf("TPM returned a 1.2 error whilst executing command %s: 0x%08x", e.Command, e.Code)
}

// TPMVendorError is returned from DecodeResponseCode and any TSSContext
// method that executes a command if the response code indicates a
// vendor-specific error.
type TPMVendorError struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPMVendorError) Error() string {
	return fmt.Sprintf("TPM returned a vendor defined error whilst executing command %s: 0x%08x", e.Command, e.Code)
}

// CommMediumError is returned from DecodeResponseCode and any TSSContext
// method that executes a command if the response code was produced by an
// intermediate communication layer rather than the TPM. The code is
// reported verbatim.
type CommMediumError struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *CommMediumError) Error() string {
	return fmt.Sprintf("communication layer returned an error whilst executing command %s: 0x%08x", e.Command, e.Code)
}

// TPMWarning is returned from DecodeResponseCode and any TSSContext method
// that executes a command if the response code indicates a condition that
// is not necessarily an error.
type TPMWarning struct {
	Command CommandCode // Command code associated with this error
	Code    WarningCode // Warning code
}

func (e *TPMWarning) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned a warning whilst executing command %s: %s", e.Command, e.Code)
	if desc, hasDesc := warningCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

// TPMError is returned from DecodeResponseCode and any TSSContext method
// that executes a command if the response code indicates an error that is
// not associated with a handle, parameter or session.
type TPMError struct {
	Command CommandCode // Command code associated with this error
	Code    ErrorCode   // Error code
}

func (e *TPMError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error whilst executing command %s: %s", e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

// TPMParameterError is returned from DecodeResponseCode and any TSSContext
// method that executes a command if the response code indicates an error
// that is associated with a command parameter. It wraps a *TPMError.
type TPMParameterError struct {
	*TPMError
	Index int // Index of the parameter associated with this error in the command parameter area, starting from 1
}

func (e *TPMParameterError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for parameter %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMParameterError) Unwrap() error {
	return e.TPMError
}

// TPMSessionError is returned from DecodeResponseCode and any TSSContext
// method that executes a command if the response code indicates an error
// that is associated with a session. It wraps a *TPMError.
type TPMSessionError struct {
	*TPMError
	Index int // Index of the session associated with this error in the authorization area, starting from 1
}

func (e *TPMSessionError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for session %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMSessionError) Unwrap() error {
	return e.TPMError
}

// TPMHandleError is returned from DecodeResponseCode and any TSSContext
// method that executes a command if the response code indicates an error
// that is associated with a command handle. It wraps a *TPMError.
type TPMHandleError struct {
	*TPMError
	// Index is the index of the handle associated with this error in the
	// command handle area, starting from 1. An index of 0 corresponds to
	// an unspecified handle.
	Index int
}

func (e *TPMHandleError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for handle %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMHandleError) Unwrap() error {
	return e.TPMError
}

// AsTPMError indicates whether the error or any error within its chain is a
// *TPMError with the specified ErrorCode and CommandCode, and sets out to
// the value of error if it is. To test for any error code, use
// AnyErrorCode. To test for any command code, use AnyCommandCode. This will
// panic if out is nil.
func AsTPMError(err error, code ErrorCode, command CommandCode, out **TPMError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command)
}

// IsTPMError indicates whether the error or any error within its chain is a
// *TPMError with the specified ErrorCode and CommandCode. To test for any
// error code, use AnyErrorCode. To test for any command code, use
// AnyCommandCode.
func IsTPMError(err error, code ErrorCode, command CommandCode) bool {
	var e *TPMError
	return AsTPMError(err, code, command, &e)
}

// AsTPMHandleError indicates whether the error or any error within its
// chain is a *TPMHandleError with the specified ErrorCode, CommandCode and
// handle index, and sets out to the value of error if it is. To test for
// any error code, use AnyErrorCode. To test for any command code, use
// AnyCommandCode. To test for any handle index, use AnyHandleIndex. This
// will panic if out is nil.
func AsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int, out **TPMHandleError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (handle == AnyHandleIndex || (*out).Index == handle)
}

// IsTPMHandleError indicates whether the error or any error within its
// chain is a *TPMHandleError with the specified ErrorCode, CommandCode and
// handle index. To test for any error code, use AnyErrorCode. To test for
// any command code, use AnyCommandCode. To test for any handle index, use
// AnyHandleIndex.
func IsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int) bool {
	var e *TPMHandleError
	return AsTPMHandleError(err, code, command, handle, &e)
}

// AsTPMParameterError indicates whether the error or any error within its
// chain is a *TPMParameterError with the specified ErrorCode, CommandCode
// and parameter index, and sets out to the value of error if it is. To test
// for any error code, use AnyErrorCode. To test for any command code, use
// AnyCommandCode. To test for any parameter index, use AnyParameterIndex.
// This will panic if out is nil.
func AsTPMParameterError(err error, code ErrorCode, command CommandCode, param int, out **TPMParameterError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (param == AnyParameterIndex || (*out).Index == param)
}

// IsTPMParameterError indicates whether the error or any error within its
// chain is a *TPMParameterError with the specified ErrorCode, CommandCode
// and parameter index. To test for any error code, use AnyErrorCode. To
// test for any command code, use AnyCommandCode. To test for any parameter
// index, use AnyParameterIndex.
func IsTPMParameterError(err error, code ErrorCode, command CommandCode, param int) bool {
	var e *TPMParameterError
	return AsTPMParameterError(err, code, command, param, &e)
}

// AsTPMSessionError indicates whether the error or any error within its
// chain is a *TPMSessionError with the specified ErrorCode, CommandCode and
// session index, and sets out to the value of error if it is. To test for
// any error code, use AnyErrorCode. To test for any command code, use
// AnyCommandCode. To test for any session index, use AnySessionIndex. This
// will panic if out is nil.
func AsTPMSessionError(err error, code ErrorCode, command CommandCode, session int, out **TPMSessionError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (session == AnySessionIndex || (*out).Index == session)
}

// IsTPMSessionError indicates whether the error or any error within its
// chain is a *TPMSessionError with the specified ErrorCode, CommandCode and
// session index. To test for any error code, use AnyErrorCode. To test for
// any command code, use AnyCommandCode. To test for any session index, use
// AnySessionIndex.
func IsTPMSessionError(err error, code ErrorCode, command CommandCode, session int) bool {
	var e *TPMSessionError
	return AsTPMSessionError(err, code, command, session, &e)
}

// AsTPMWarning indicates whether the error or any error within its chain is
// a *TPMWarning with the specified WarningCode and CommandCode, and sets
// out to the value of error if it is. To test for any warning code, use
// AnyWarningCode. To test for any command code, use AnyCommandCode. This
// will panic if out is nil.
func AsTPMWarning(err error, code WarningCode, command CommandCode, out **TPMWarning) bool {
	return xerrors.As(err, out) && (code == AnyWarningCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command)
}

// IsTPMWarning indicates whether the error or any error within its chain is
// a *TPMWarning with the specified WarningCode and CommandCode. To test for
// any warning code, use AnyWarningCode. To test for any command code, use
// AnyCommandCode.
func IsTPMWarning(err error, code WarningCode, command CommandCode) bool {
	var e *TPMWarning
	return AsTPMWarning(err, code, command, &e)
}

// DecodeResponseCode decodes the ResponseCode provided via resp. If the
// specified response code is ResponseSuccess, it returns no error, else it
// returns an error that is appropriate for the response code. The code is
// canonicalized with CanonicalizeResponseCode before decoding, so
// positional fields never influence the identity of the returned error -
// they only populate the index of the positional error types. The command
// code is used for adding context to the returned error.
func DecodeResponseCode(command CommandCode, resp ResponseCode) error {
	if resp == ResponseSuccess {
		return nil
	}

	if IsCommMediumError(resp) {
		return &CommMediumError{command, resp}
	}

	canonical := CanonicalizeResponseCode(resp)

	if !resp.F() {
		switch {
		case !resp.V():
			return &TPM1Error{command, canonical}
		case resp.T():
			return &TPMVendorError{command, resp}
		case resp.S():
			return &TPMWarning{command, WarningCode(canonical & responseCodeE0)}
		default:
			return &TPMError{command, ErrorCode(canonical & responseCodeE0)}
		}
	}

	err := &TPMError{command, ErrorCode(canonical&responseCodeE1) + errorCode1Start}
	switch {
	case resp.P():
		return &TPMParameterError{err, int(resp.N())}
	case resp&responseCodeS != 0:
		return &TPMSessionError{err, int(resp.N() & 0x7)}
	case resp.N() != 0:
		return &TPMHandleError{err, int(resp.N())}
	default:
		return err
	}
}
