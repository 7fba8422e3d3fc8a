// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss_test

import (
	"bytes"

	. "gopkg.in/check.v1"

	. "github.com/utpm/go-tss"
	internal_testutil "github.com/utpm/go-tss/internal/testutil"
	"github.com/utpm/go-tss/mu"
	"github.com/utpm/go-tss/testutil"
)

type hashHMACSuite struct {
	transport *testutil.ScriptedTransport
	tpm       *TSSContext
	session   *Session
}

var _ = Suite(&hashHMACSuite{})

func (s *hashHMACSuite) SetUpTest(c *C) {
	s.transport = testutil.NewScriptedTransport()
	tpm, err := NewTSSContext(s.transport)
	c.Assert(err, IsNil)
	s.tpm = tpm
	s.session = NewPasswordSession(nil)
}

func (s *hashHMACSuite) authArea() []AuthCommand {
	return []AuthCommand{{SessionHandle: HandlePW, SessionAttributes: AttrContinueSession}}
}

func (s *hashHMACSuite) queueSessionResponse(params []byte) {
	payload := mu.MustMarshalToBytes(uint32(len(params)), mu.RawBytes(params),
		AuthResponse{SessionAttributes: AttrContinueSession})
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseSuccess, payload))
}

func (s *hashHMACSuite) queueInputBufferSizeResponse(size uint32) {
	payload := mu.MustMarshalToBytes(false,
		CapabilityData{
			Capability:    CapabilityTPMProperties,
			TPMProperties: []TaggedProperty{{Property: PropertyInputBuffer, Value: size}}})
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, payload))
}

func (s *hashHMACSuite) TestHash(c *C) {
	expectedDigest := Digest{0x01, 0x02, 0x03, 0x04}
	expectedValidation := &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleOwner, Digest: Digest{0x0a, 0x0b}}
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess,
		mu.MustMarshalToBytes(expectedDigest, expectedValidation)))

	data := MaxBuffer("some data")
	digest, validation, err := s.tpm.Hash(data, HashAlgorithmSHA256, HandleOwner)
	c.Assert(err, IsNil)
	c.Check(digest, DeepEquals, expectedDigest)
	c.Check(validation, DeepEquals, expectedValidation)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(data, HashAlgorithmSHA256, HandleOwner)
	expected := MustMarshalCommandPacket(CommandHash, nil, nil, params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashError(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseCode(0x000001c3), nil))

	digest, validation, err := s.tpm.Hash(MaxBuffer("some data"), HashAlgorithmSHA256, HandleNull)
	c.Check(IsTPMParameterError(err, ErrorHash, CommandHash, 1), internal_testutil.IsTrue)
	c.Check(digest, IsNil)
	c.Check(validation, IsNil)
}

func (s *hashHMACSuite) TestHMAC(c *C) {
	expectedDigest := Digest{0x01, 0x02, 0x03, 0x04}
	s.queueSessionResponse(mu.MustMarshalToBytes(expectedDigest))

	buffer := MaxBuffer("some data")
	digest, err := s.tpm.HMAC(0x81000001, buffer, HashAlgorithmSHA256, s.session)
	c.Assert(err, IsNil)
	c.Check(digest, DeepEquals, expectedDigest)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(buffer, HashAlgorithmSHA256)
	expected := MustMarshalCommandPacket(CommandHMAC, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashSequenceStart(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess,
		mu.MustMarshalToBytes(Handle(0x80000001))))

	handle, err := s.tpm.HashSequenceStart(Auth("1234"), HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Check(handle, Equals, Handle(0x80000001))

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(Auth("1234"), HashAlgorithmSHA256)
	expected := MustMarshalCommandPacket(CommandHashSequenceStart, nil, nil, params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashSequenceStartError(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseCode(0x000002c3), nil))

	handle, err := s.tpm.HashSequenceStart(nil, HashAlgorithmSHA256)
	c.Check(IsTPMParameterError(err, ErrorHash, CommandHashSequenceStart, 2), internal_testutil.IsTrue)
	c.Check(handle, Equals, HandleUnassigned)
}

func (s *hashHMACSuite) TestHMACStart(c *C) {
	payload := mu.MustMarshalToBytes(Handle(0x80000002), uint32(0),
		AuthResponse{SessionAttributes: AttrContinueSession})
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseSuccess, payload))

	handle, err := s.tpm.HMACStart(0x81000001, Auth("1234"), HashAlgorithmSHA256, s.session)
	c.Assert(err, IsNil)
	c.Check(handle, Equals, Handle(0x80000002))

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(Auth("1234"), HashAlgorithmSHA256)
	expected := MustMarshalCommandPacket(CommandHMACStart, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestSequenceUpdate(c *C) {
	s.queueSessionResponse(nil)

	buffer := MaxBuffer(bytes.Repeat([]byte{0xa5}, 256))
	c.Check(s.tpm.SequenceUpdate(0x80000002, buffer, s.session), IsNil)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	expected := MustMarshalCommandPacket(CommandSequenceUpdate, HandleList{0x80000002},
		s.authArea(), mu.MustMarshalToBytes(buffer))
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestSequenceComplete(c *C) {
	expectedDigest := Digest{0x01, 0x02, 0x03, 0x04}
	expectedValidation := &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull}
	s.queueSessionResponse(mu.MustMarshalToBytes(expectedDigest, expectedValidation))

	buffer := MaxBuffer("final")
	result, validation, err := s.tpm.SequenceComplete(0x80000002, buffer, HandleNull, s.session)
	c.Assert(err, IsNil)
	c.Check(result, DeepEquals, expectedDigest)
	c.Check(validation, DeepEquals, &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull, Digest: Digest{}})

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(buffer, HandleNull)
	expected := MustMarshalCommandPacket(CommandSequenceComplete, HandleList{0x80000002}, s.authArea(), params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashData(c *C) {
	s.queueInputBufferSizeResponse(1024)

	expectedDigest := Digest{0x01, 0x02, 0x03, 0x04}
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess,
		mu.MustMarshalToBytes(expectedDigest, &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull})))

	data := []byte("some data")
	digest, err := s.tpm.HashData(data, HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Check(digest, DeepEquals, expectedDigest)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 2)
	params := mu.MustMarshalToBytes(MaxBuffer(data), HashAlgorithmSHA256, HandleNull)
	expected := MustMarshalCommandPacket(CommandHash, nil, nil, params)
	c.Check(log[1], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashDataInputBufferBoundary(c *C) {
	s.queueInputBufferSizeResponse(1024)

	expectedDigest := Digest{0x01, 0x02, 0x03, 0x04}
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess,
		mu.MustMarshalToBytes(expectedDigest, &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull})))

	// Exactly one input buffer still takes the one-shot path.
	data := bytes.Repeat([]byte{0x5a}, 1024)
	digest, err := s.tpm.HashData(data, HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Check(digest, DeepEquals, expectedDigest)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 2)
	params := mu.MustMarshalToBytes(MaxBuffer(data), HashAlgorithmSHA256, HandleNull)
	expected := MustMarshalCommandPacket(CommandHash, nil, nil, params)
	c.Check(log[1], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashDataStreaming(c *C) {
	s.queueInputBufferSizeResponse(1024)

	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess,
		mu.MustMarshalToBytes(Handle(0x80000001))))

	s.queueSessionResponse(nil)

	expectedDigest := make(Digest, 32)
	for i := range expectedDigest {
		expectedDigest[i] = byte(i)
	}
	s.queueSessionResponse(mu.MustMarshalToBytes(expectedDigest,
		&TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull}))

	data := bytes.Repeat([]byte{0xa5}, 1025)
	digest, err := s.tpm.HashData(data, HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Check(digest, DeepEquals, expectedDigest)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 4)

	expected := MustMarshalCommandPacket(CommandHashSequenceStart, nil, nil,
		mu.MustMarshalToBytes(Auth(nil), HashAlgorithmSHA256))
	c.Check(log[1], DeepEquals, []byte(expected))

	expected = MustMarshalCommandPacket(CommandSequenceUpdate, HandleList{0x80000001},
		s.authArea(), mu.MustMarshalToBytes(MaxBuffer(data[:1024])))
	c.Check(log[2], DeepEquals, []byte(expected))

	expected = MustMarshalCommandPacket(CommandSequenceComplete, HandleList{0x80000001},
		s.authArea(), mu.MustMarshalToBytes(MaxBuffer(data[1024:]), HandleNull))
	c.Check(log[3], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashDataStreamingCommandCount(c *C) {
	s.queueInputBufferSizeResponse(1024)

	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess,
		mu.MustMarshalToBytes(Handle(0x80000001))))

	s.queueSessionResponse(nil)
	s.queueSessionResponse(nil)

	expectedDigest := Digest{0x01, 0x02}
	s.queueSessionResponse(mu.MustMarshalToBytes(expectedDigest,
		&TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull}))

	// 2053 bytes over a 1024 byte input buffer: two full updates and a
	// final chunk of 5.
	data := bytes.Repeat([]byte{0x5a}, 2053)
	digest, err := s.tpm.HashData(data, HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Check(digest, DeepEquals, expectedDigest)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 5)
	expected := MustMarshalCommandPacket(CommandSequenceComplete, HandleList{0x80000001},
		s.authArea(), mu.MustMarshalToBytes(MaxBuffer(data[2048:]), HandleNull))
	c.Check(log[4], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHashDataStreamingStartError(c *C) {
	s.queueInputBufferSizeResponse(1024)
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseCode(0x000002c3), nil))

	digest, err := s.tpm.HashData(bytes.Repeat([]byte{0x5a}, 2048), HashAlgorithmSHA256)
	c.Check(IsTPMParameterError(err, ErrorHash, CommandHashSequenceStart, 2), internal_testutil.IsTrue)
	c.Check(digest, IsNil)
	c.Check(s.transport.CommandLog(), HasLen, 2)
}

func (s *hashHMACSuite) TestHMACData(c *C) {
	expectedDigest := Digest{0x01, 0x02, 0x03, 0x04}
	s.queueSessionResponse(mu.MustMarshalToBytes(expectedDigest))

	data := []byte("some data")
	digest, err := s.tpm.HMACData(s.session, 0x81000001, data)
	c.Assert(err, IsNil)
	c.Check(digest, DeepEquals, expectedDigest)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(MaxBuffer(data), HashAlgorithmNull)
	expected := MustMarshalCommandPacket(CommandHMAC, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *hashHMACSuite) TestHMACDataTooLarge(c *C) {
	digest, err := s.tpm.HMACData(s.session, 0x81000001, make([]byte, MaxDigestBuffer+1))
	c.Check(IsTPMError(err, ErrorSize, CommandHMAC), internal_testutil.IsTrue)
	c.Check(digest, IsNil)
	c.Check(s.transport.CommandLog(), HasLen, 0)
}
