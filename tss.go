// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/golang/glog"
	"golang.org/x/xerrors"

	"github.com/utpm/go-tss/mu"
)

func makeInvalidArgError(name, msg string) error {
	return fmt.Errorf("invalid %s argument: %s", name, msg)
}

func wrapMarshallingError(commandCode CommandCode, context string, err error) error {
	return fmt.Errorf("cannot marshal %s for command %s: %v", context, commandCode, err)
}

func handleUnmarshallingError(context *cmdContext, scope string, err error) error {
	var s *mu.InvalidSelectorError
	if xerrors.Is(err, io.EOF) || xerrors.Is(err, io.ErrUnexpectedEOF) || xerrors.As(err, &s) {
		return &InvalidResponseError{context.commandCode, fmt.Sprintf("cannot unmarshal %s: %v", scope, err)}
	}

	return fmt.Errorf("cannot unmarshal %s for command %s: %v", scope, context.commandCode, err)
}

// commandReturnsHandle indicates whether a successful response to the
// command carries a handle between the response header and the parameter
// area.
func commandReturnsHandle(commandCode CommandCode) bool {
	switch commandCode {
	case CommandCreatePrimary, CommandLoad, CommandHMACStart, CommandContextLoad,
		CommandLoadExternal, CommandStartAuthSession, CommandHashSequenceStart,
		CommandCreateLoaded:
		return true
	default:
		return false
	}
}

type responseAuthAreaRawSlice struct {
	Data []AuthResponse `tpm:"raw"`
}

type cmdContext struct {
	commandCode   CommandCode
	sessions      []*Session
	responseCode  ResponseCode
	responseTag   StructTag
	responseBytes []byte
}

type delimiterSentinel struct{}

// Delimiter is a sentinel value used to delimit command handle, command
// parameter, response handle pointer and response parameter pointer blocks
// in the variable length params argument in TSSContext.RunCommand.
var Delimiter delimiterSentinel

// TSSContext is the main entry point by which commands are executed on a
// TPM device using this package. It communicates with the underlying device
// via a Transport implementation provided to NewTSSContext.
//
// Methods that execute commands on the TPM will return errors where the TPM
// responds with them. These are in the form of *TPMError, *TPMWarning,
// *TPMHandleError, *TPMSessionError, *TPMParameterError, *TPMVendorError
// and *CommMediumError types. The response code recorded inside these
// errors is canonical - positional and reserved fields are already stripped
// from it.
type TSSContext struct {
	transport             Transport
	lastResponseCode      ResponseCode
	maxInputBufferSize    int
	propertiesInitialized bool
}

// Close calls Close on the transport.
func (t *TSSContext) Close() error {
	if err := t.transport.Close(); err != nil {
		return &TransportError{"close", err}
	}

	return nil
}

// LastResponseCode returns the raw response code of the most recent
// response received from the device, before canonicalization. It is only
// meaningful after a command method has returned.
func (t *TSSContext) LastResponseCode() ResponseCode {
	return t.lastResponseCode
}

func (t *TSSContext) exchange(commandCode CommandCode, packet []byte) (ResponseCode, StructTag, []byte, error) {
	if _, err := t.transport.Write(packet); err != nil {
		glog.Errorf("cannot send command %v: %v", commandCode, err)
		return 0, 0, nil, &TransportError{"write", err}
	}

	var rHeader ResponseHeader
	rHeaderSize := uint32(binary.Size(rHeader))
	rHeaderBytes := make([]byte, rHeaderSize)
	if n, err := io.ReadFull(t.transport, rHeaderBytes); err != nil {
		if xerrors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, nil, &InvalidResponseError{commandCode, fmt.Sprintf("insufficient bytes for response header (got %d, "+
				"expected %d)", n, rHeaderSize)}
		}
		glog.Errorf("cannot read response header for command %v: %v", commandCode, err)
		return 0, 0, nil, &TransportError{"read", err}
	}

	if _, err := mu.UnmarshalFromBytes(rHeaderBytes, &rHeader); err != nil {
		panic(fmt.Sprintf("cannot unmarshal response header: %v", err))
	}

	switch rHeader.Tag {
	case TagNoSessions, TagSessions, TagRspCommand:
	default:
		return 0, 0, nil, &InvalidResponseError{commandCode, fmt.Sprintf("invalid response tag 0x%04x", uint16(rHeader.Tag))}
	}

	if rHeader.ResponseSize < rHeaderSize || rHeader.ResponseSize > MaxResponseSize {
		return 0, 0, nil, &InvalidResponseError{commandCode, fmt.Sprintf("invalid responseSize value (%d)", rHeader.ResponseSize)}
	}

	responseBytes := make([]byte, rHeader.ResponseSize-rHeaderSize)
	if n, err := io.ReadFull(t.transport, responseBytes); err != nil {
		if xerrors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, nil, &InvalidResponseError{commandCode, fmt.Sprintf("insufficient bytes for response payload (got %d, "+
				"expected %d)", n, len(responseBytes))}
		}
		glog.Errorf("cannot read response payload for command %v: %v", commandCode, err)
		return 0, 0, nil, &TransportError{"read", err}
	}

	t.lastResponseCode = rHeader.ResponseCode

	return rHeader.ResponseCode, rHeader.Tag, responseBytes, nil
}

// RunCommandBytes is a low-level interface for executing the command
// defined by the specified commandCode. It will construct an appropriate
// header, but the caller is responsible for providing the rest of the
// serialized command structure in commandBytes. Valid values for tag are
// TagNoSessions if the authorization area is empty, else it must be
// TagSessions.
//
// If successful, this function will return the ResponseCode and StructTag
// from the response header along with the rest of the response structure
// (everything except for the header). It will not return an error if the
// TPM responds with an error as long as the returned response structure is
// correctly formed, but will return an error if marshalling of the command
// header or unmarshalling of the response header fails, or the transport
// returns an error.
func (t *TSSContext) RunCommandBytes(tag StructTag, commandCode CommandCode, commandBytes []byte) (ResponseCode, StructTag, []byte, error) {
	cHeader := CommandHeader{tag, 0, commandCode}
	cHeader.CommandSize = uint32(binary.Size(cHeader) + len(commandBytes))

	b, err := mu.MarshalToBytes(cHeader, mu.RawBytes(commandBytes))
	if err != nil {
		panic(fmt.Sprintf("cannot marshal complete command packet bytes: %v", err))
	}

	return t.exchange(commandCode, b)
}

func (t *TSSContext) runCommandWithoutProcessingResponse(commandCode CommandCode, sessions []*Session, handles, params []interface{}) (*cmdContext, error) {
	handleList := make(HandleList, 0, len(handles))

	for i, handle := range handles {
		switch h := handle.(type) {
		case Handle:
			handleList = append(handleList, h)
		case nil:
			handleList = append(handleList, HandleNull)
		default:
			return nil, wrapMarshallingError(commandCode, "command handles",
				fmt.Errorf("cannot process command handle parameter at index %d: invalid type (%s)", i, reflect.TypeOf(handle)))
		}
	}

	cpBytes := new(bytes.Buffer)
	if _, err := mu.MarshalToWriter(cpBytes, params...); err != nil {
		return nil, wrapMarshallingError(commandCode, "command parameters", err)
	}

	authArea := buildCommandAuthArea(sessions...)

	packet, err := MarshalCommandPacket(commandCode, handleList, authArea, cpBytes.Bytes())
	if err != nil {
		return nil, fmt.Errorf("cannot build command packet for command %s: %v", commandCode, err)
	}

	responseCode, responseTag, responseBytes, err := t.exchange(commandCode, packet)
	if err != nil {
		return nil, err
	}

	if err := DecodeResponseCode(commandCode, responseCode); err != nil {
		glog.Errorf("command %v failed: %v", commandCode, err)
		return nil, err
	}

	return &cmdContext{
		commandCode:   commandCode,
		sessions:      sessions,
		responseCode:  responseCode,
		responseTag:   responseTag,
		responseBytes: responseBytes}, nil
}

func (t *TSSContext) processResponse(context *cmdContext, handles, params []interface{}) error {
	if len(handles) > 1 {
		return fmt.Errorf("too many response handle pointers supplied for command %s", context.commandCode)
	}
	for i, handle := range handles {
		_, isHandle := handle.(*Handle)
		if !isHandle {
			return fmt.Errorf("cannot process response handle parameter for command %s at index %d: invalid type (%s)",
				context.commandCode, i, reflect.TypeOf(handle))
		}
	}
	if len(handles) > 0 && !commandReturnsHandle(context.commandCode) {
		return fmt.Errorf("command %s does not return a handle", context.commandCode)
	}

	buf := bytes.NewReader(context.responseBytes)

	if commandReturnsHandle(context.commandCode) {
		var handle Handle
		if _, err := mu.UnmarshalFromReader(buf, &handle); err != nil {
			return handleUnmarshallingError(context, "response handle", err)
		}
		if handle == 0 || handle == HandleUnassigned {
			return &InvalidResponseError{context.commandCode, fmt.Sprintf("invalid response handle 0x%08x", uint32(handle))}
		}
		if len(handles) > 0 {
			*(handles[0].(*Handle)) = handle
		}
	}

	var rpBuf *bytes.Reader

	switch context.responseTag {
	case TagSessions:
		var parameterSize uint32
		if _, err := mu.UnmarshalFromReader(buf, &parameterSize); err != nil {
			return handleUnmarshallingError(context, "parameterSize field", err)
		}
		if parameterSize > uint32(buf.Len()) {
			return &InvalidResponseError{context.commandCode,
				fmt.Sprintf("invalid parameterSize value (got %d, %d bytes remaining)", parameterSize, buf.Len())}
		}
		rpBytes := make([]byte, parameterSize)
		if _, err := io.ReadFull(buf, rpBytes); err != nil {
			return handleUnmarshallingError(context, "response parameters",
				fmt.Errorf("error reading parameters to temporary buffer: %v", err))
		}

		authArea := responseAuthAreaRawSlice{make([]AuthResponse, len(buildCommandAuthArea(context.sessions...)))}
		if _, err := mu.UnmarshalFromReader(buf, &authArea); err != nil {
			return handleUnmarshallingError(context, "response auth area", err)
		}
		if err := processResponseAuthArea(context.sessions, authArea.Data); err != nil {
			return &InvalidResponseError{context.commandCode, fmt.Sprintf("cannot process response auth area: %v", err)}
		}

		rpBuf = bytes.NewReader(rpBytes)
	case TagNoSessions:
		rpBuf = buf
	default:
		return &InvalidResponseError{context.commandCode, fmt.Sprintf("unexpected response tag: 0x%04x", uint16(context.responseTag))}
	}

	if len(params) > 0 {
		if _, err := mu.UnmarshalFromReader(rpBuf, params...); err != nil {
			return handleUnmarshallingError(context, "response parameters", err)
		}
	}

	if buf.Len() > 0 {
		return &InvalidResponseError{context.commandCode, fmt.Sprintf("response contains %d trailing bytes", buf.Len())}
	}

	return nil
}

// RunCommand is the high-level generic interface for executing the command
// specified by commandCode. All of the methods on TSSContext exported by
// this package that execute commands on the TPM are essentially wrappers
// around this function. It takes care of marshalling command handles and
// command parameters, as well as constructing and marshalling the
// authorization area and choosing the correct StructTag value. It takes
// care of unmarshalling the response handle and response parameters.
//
// The variable length params argument provides a mechanism for the caller
// to provide command handles, command parameters, response handle pointers
// and response parameter pointers (in that order), with each group of
// arguments being separated by the Delimiter sentinel value.
//
// Command handles are provided as Handle values. A nil value is converted
// to HandleNull. Command parameters are provided as the go equivalent types
// for the types defined in the TPM Library Specification. Response handles
// are provided as pointers to Handle values, and are only valid for
// commands that return a handle. Response parameters are provided as
// pointers to values of the go equivalent types.
//
// The sessions argument provides the authorization sessions for the
// command. A session's command record is submitted as supplied, and its
// response record is updated from the response auth area.
//
// In addition to returning an error if any marshalling or unmarshalling
// fails, or if the transport returns an error, this function will also
// return an error if the TPM responds with any ResponseCode other than
// ResponseSuccess.
func (t *TSSContext) RunCommand(commandCode CommandCode, sessions []*Session, params ...interface{}) error {
	var commandHandles []interface{}
	var commandParams []interface{}
	var responseHandles []interface{}
	var responseParams []interface{}

	sentinels := 0
	for _, param := range params {
		if param == Delimiter {
			sentinels++
			continue
		}

		switch sentinels {
		case 0:
			commandHandles = append(commandHandles, param)
		case 1:
			commandParams = append(commandParams, param)
		case 2:
			responseHandles = append(responseHandles, param)
		case 3:
			responseParams = append(responseParams, param)
		}
	}

	ctx, err := t.runCommandWithoutProcessingResponse(commandCode, sessions, commandHandles, commandParams)
	if err != nil {
		return err
	}

	return t.processResponse(ctx, responseHandles, responseParams)
}

// EnsureStarted executes a TPM2_Startup command with StartupClear. A TPM
// that has already been started responds to this with TPM_RC_INITIALIZE,
// which is not treated as a failure.
func (t *TSSContext) EnsureStarted() error {
	err := t.Startup(StartupClear)
	if IsTPMError(err, ErrorInitialize, CommandStartup) {
		return nil
	}
	return err
}

// InitProperties executes a TPM2_GetCapability command to initialize
// properties used internally by TSSContext. This is normally done
// automatically by functions that require these properties when they are
// used for the first time.
func (t *TSSContext) InitProperties() error {
	value, err := t.GetTPMProperty(PropertyInputBuffer)
	if err != nil {
		return err
	}

	t.maxInputBufferSize = int(value)
	if t.maxInputBufferSize == 0 {
		t.maxInputBufferSize = MaxDigestBuffer
	}
	t.propertiesInitialized = true
	return nil
}

func (t *TSSContext) initPropertiesIfNeeded() error {
	if t.propertiesInitialized {
		return nil
	}
	return t.InitProperties()
}

// InputBufferSize returns the maximum size of the data payload accepted by
// commands that stream data to the TPM, determined from the
// TPM_PT_INPUT_BUFFER property. The value is queried from the TPM on first
// use.
func (t *TSSContext) InputBufferSize() (int, error) {
	if err := t.initPropertiesIfNeeded(); err != nil {
		return 0, err
	}
	return t.maxInputBufferSize, nil
}

func newTSSContext(transport Transport) *TSSContext {
	return &TSSContext{transport: transport}
}

// NewTSSContext creates a new instance of TSSContext, which communicates
// with the TPM using the supplied transport.
//
// If the transport parameter is nil, this function will try to autodetect
// a TPM interface using the following order:
//   - Linux TPM device (/dev/tpmrm0)
//   - Linux TPM device (/dev/tpm0)
//   - TPM simulator (localhost:2321 for the TPM command server and
//     localhost:2322 for the platform server)
//
// It will return an error if a TPM interface cannot be detected.
//
// If the transport implements the NeedsStartup interface and reports that
// it does, a TPM2_Startup command is issued before the context is returned.
func NewTSSContext(transport Transport) (*TSSContext, error) {
	if transport == nil {
		for _, path := range []string{"/dev/tpmrm0", "/dev/tpm0"} {
			device, err := OpenTPMDevice(path)
			if err == nil {
				transport = device
				break
			}
		}
		if transport == nil {
			if mssim, err := OpenMssim("localhost", 2321, 2322); err == nil {
				transport = mssim
			}
		}
		if transport == nil {
			return nil, errors.New("cannot find TPM interface to auto-open")
		}
	}

	t := newTSSContext(transport)

	if s, ok := transport.(NeedsStartup); ok && s.NeedsStartup() {
		if err := t.EnsureStarted(); err != nil {
			t.Close()
			return nil, xerrors.Errorf("cannot start TPM: %w", err)
		}
	}

	return t, nil
}

// NeedsStartup may be implemented by a Transport to indicate that the
// device behind it has just been reset and requires a TPM2_Startup command
// before it accepts others. Simulator transports typically implement this.
type NeedsStartup interface {
	NeedsStartup() bool
}
