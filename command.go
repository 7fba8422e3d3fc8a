// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"

	"golang.org/x/xerrors"

	"github.com/utpm/go-tss/mu"
)

// CommandHeader is the header for a TPM command.
type CommandHeader struct {
	Tag         StructTag
	CommandSize uint32
	CommandCode CommandCode
}

// CommandPacket corresponds to a complete command packet including header
// and payload.
type CommandPacket []byte

// GetCommandCode returns the command code contained within this packet.
func (p CommandPacket) GetCommandCode() (CommandCode, error) {
	var header CommandHeader
	if _, err := mu.UnmarshalFromBytes(p, &header); err != nil {
		return 0, xerrors.Errorf("cannot unmarshal header: %w", err)
	}
	return header.CommandCode, nil
}

// Unmarshal unmarshals this command packet, returning the handles, auth
// area and parameters. The parameters will still be in the TPM wire format.
// The number of command handles associated with the command must be
// supplied by the caller.
func (p CommandPacket) Unmarshal(numHandles int) (handles HandleList, authArea []AuthCommand, parameters []byte, err error) {
	buf := bytes.NewReader(p)

	var header CommandHeader
	if _, err := mu.UnmarshalFromReader(buf, &header); err != nil {
		return nil, nil, nil, xerrors.Errorf("cannot unmarshal header: %w", err)
	}

	if header.CommandSize != uint32(len(p)) {
		return nil, nil, nil, fmt.Errorf("invalid commandSize value (got %d, packet length %d)", header.CommandSize, len(p))
	}

	handles = make(HandleList, numHandles)
	if _, err := mu.UnmarshalFromReader(buf, mu.Raw(&handles)); err != nil {
		return nil, nil, nil, xerrors.Errorf("cannot unmarshal handles: %w", err)
	}

	switch header.Tag {
	case TagSessions:
		var authSize uint32
		if _, err := mu.UnmarshalFromReader(buf, &authSize); err != nil {
			return nil, nil, nil, xerrors.Errorf("cannot unmarshal auth area size: %w", err)
		}
		r := &io.LimitedReader{R: buf, N: int64(authSize)}
		for r.N > 0 {
			if len(authArea) >= 3 {
				return nil, nil, nil, fmt.Errorf("%d trailing byte(s) in auth area", r.N)
			}

			var auth AuthCommand
			if _, err := mu.UnmarshalFromReader(r, &auth); err != nil {
				return nil, nil, nil, xerrors.Errorf("cannot unmarshal auth: %w", err)
			}

			authArea = append(authArea, auth)
		}
	case TagNoSessions:
	default:
		return nil, nil, nil, fmt.Errorf("invalid tag: 0x%04x", uint16(header.Tag))
	}

	parameters, err = ioutil.ReadAll(buf)
	if err != nil {
		return nil, nil, nil, xerrors.Errorf("cannot read parameters: %w", err)
	}

	return handles, authArea, parameters, nil
}

// MarshalCommandPacket serializes a complete TPM packet from the provided
// arguments. The parameters argument must already be serialized to the TPM
// wire format.
//
// The tag of the packet is selected by the auth area: TPM_ST_SESSIONS if it
// contains any records, TPM_ST_NO_SESSIONS otherwise. The commandSize field
// of the header is computed over the finished packet.
//
// An error is returned if the command code is outside of the range of
// defined TPM2 commands, or if the finished packet would exceed
// MaxCommandSize.
func MarshalCommandPacket(command CommandCode, handles HandleList, authArea []AuthCommand, parameters []byte) (CommandPacket, error) {
	if command < CommandFirst || command > CommandLast {
		return nil, fmt.Errorf("command code %s is out of range", command)
	}

	header := CommandHeader{CommandCode: command}
	var payload mu.RawBytes

	switch {
	case len(authArea) > 0:
		header.Tag = TagSessions

		aBytes := mu.MustMarshalToBytes(mu.Raw(authArea))
		payload = mu.MustMarshalToBytes(mu.Raw(handles), uint32(len(aBytes)), mu.RawBytes(aBytes), mu.RawBytes(parameters))
	case len(authArea) == 0:
		header.Tag = TagNoSessions

		payload = mu.MustMarshalToBytes(mu.Raw(handles), mu.RawBytes(parameters))
	}

	header.CommandSize = uint32(binary.Size(header) + len(payload))
	if header.CommandSize > MaxCommandSize {
		return nil, fmt.Errorf("command packet for %s is too large (%d bytes)", command, header.CommandSize)
	}

	return mu.MustMarshalToBytes(header, payload), nil
}

// MustMarshalCommandPacket is like MarshalCommandPacket except that it
// panics if the packet cannot be built.
func MustMarshalCommandPacket(command CommandCode, handles HandleList, authArea []AuthCommand, parameters []byte) CommandPacket {
	p, err := MarshalCommandPacket(command, handles, authArea, parameters)
	if err != nil {
		panic(err)
	}
	return p
}

// ResponseHeader is the header for the TPM's response to a command.
type ResponseHeader struct {
	Tag          StructTag
	ResponseSize uint32
	ResponseCode ResponseCode
}

// ResponsePacket corresponds to a complete response packet including header
// and payload.
type ResponsePacket []byte

// Unmarshal deserializes the response packet and returns the response code,
// parameters and auth area. The parameters will still be in the TPM wire
// format. The caller supplies a pointer to which the response handle will
// be written. The pointer must be supplied if the command returns a handle,
// and must be nil if the command does not return a handle, else the
// response will be incorrectly unmarshalled.
func (p ResponsePacket) Unmarshal(handle *Handle) (rc ResponseCode, parameters []byte, authArea []AuthResponse, err error) {
	if len(p) > MaxResponseSize {
		return 0, nil, nil, fmt.Errorf("packet too large (%d bytes)", len(p))
	}

	buf := bytes.NewReader(p)

	var header ResponseHeader
	if _, err := mu.UnmarshalFromReader(buf, &header); err != nil {
		return 0, nil, nil, xerrors.Errorf("cannot unmarshal header: %w", err)
	}

	if header.ResponseSize != uint32(len(p)) {
		return 0, nil, nil, fmt.Errorf("invalid responseSize value (got %d, packet length %d)", header.ResponseSize, len(p))
	}

	if header.ResponseCode != ResponseSuccess && buf.Len() != 0 {
		return header.ResponseCode, nil, nil, fmt.Errorf("%d trailing byte(s) in unsuccessful response", buf.Len())
	}

	switch header.Tag {
	case TagRspCommand:
		if header.ResponseCode != ResponseBadTag {
			return 0, nil, nil, fmt.Errorf("unexpected TPM1.2 response code 0x%08x", uint32(header.ResponseCode))
		}
	case TagSessions:
		if header.ResponseCode != ResponseSuccess {
			return 0, nil, nil, fmt.Errorf("unexpected response code 0x%08x for TPM_ST_SESSIONS response", uint32(header.ResponseCode))
		}
		fallthrough
	case TagNoSessions:
		if header.ResponseCode == ResponseSuccess && handle != nil {
			if _, err := mu.UnmarshalFromReader(buf, handle); err != nil {
				return 0, nil, nil, xerrors.Errorf("cannot unmarshal handle: %w", err)
			}
		}
	default:
		return 0, nil, nil, fmt.Errorf("invalid tag: 0x%04x", uint16(header.Tag))
	}

	switch header.Tag {
	case TagRspCommand:
	case TagSessions:
		var parameterSize uint32
		if _, err := mu.UnmarshalFromReader(buf, &parameterSize); err != nil {
			return 0, nil, nil, xerrors.Errorf("cannot unmarshal parameterSize: %w", err)
		}
		if parameterSize > uint32(buf.Len()) {
			return 0, nil, nil, fmt.Errorf("invalid parameterSize value (got %d, %d bytes remaining)", parameterSize, buf.Len())
		}

		parameters = make([]byte, parameterSize)
		if _, err := io.ReadFull(buf, parameters); err != nil {
			return 0, nil, nil, xerrors.Errorf("cannot read parameters: %w", err)
		}

		for buf.Len() > 0 {
			if len(authArea) >= 3 {
				return 0, nil, nil, fmt.Errorf("%d trailing byte(s)", buf.Len())
			}

			var auth AuthResponse
			if _, err := mu.UnmarshalFromReader(buf, &auth); err != nil {
				return 0, nil, nil, xerrors.Errorf("cannot unmarshal auth: %w", err)
			}

			authArea = append(authArea, auth)
		}
	case TagNoSessions:
		parameters, err = ioutil.ReadAll(buf)
		if err != nil {
			return 0, nil, nil, xerrors.Errorf("cannot read parameters: %w", err)
		}
	}

	return header.ResponseCode, parameters, authArea, nil
}
