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

type signatureSuite struct {
	transport *testutil.ScriptedTransport
	tpm       *TSSContext
	session   *Session
}

var _ = Suite(&signatureSuite{})

func (s *signatureSuite) SetUpTest(c *C) {
	s.transport = testutil.NewScriptedTransport()
	tpm, err := NewTSSContext(s.transport)
	c.Assert(err, IsNil)
	s.tpm = tpm
	s.session = NewPasswordSession([]byte("1234"))
}

func (s *signatureSuite) authArea() []AuthCommand {
	return []AuthCommand{{SessionHandle: HandlePW, SessionAttributes: AttrContinueSession, HMAC: Auth("1234")}}
}

// queueSessionResponse queues a successful response with the supplied
// parameter bytes and a single authorization response.
func (s *signatureSuite) queueSessionResponse(params []byte) {
	payload := mu.MustMarshalToBytes(uint32(len(params)), mu.RawBytes(params),
		AuthResponse{SessionAttributes: AttrContinueSession})
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseSuccess, payload))
}

func (s *signatureSuite) queueInputBufferSizeResponse(size uint32) {
	payload := mu.MustMarshalToBytes(false,
		CapabilityData{
			Capability:    CapabilityTPMProperties,
			TPMProperties: []TaggedProperty{{Property: PropertyInputBuffer, Value: size}}})
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, payload))
}

func (s *signatureSuite) TestSign(c *C) {
	expectedSig := &Signature{
		SigAlg: AlgorithmRSASSA,
		RSA:    &SignatureRSA{Hash: HashAlgorithmSHA256, Sig: []byte{0x05, 0x06, 0x07, 0x08}}}
	s.queueSessionResponse(mu.MustMarshalToBytes(expectedSig))

	digest := Digest{0x01, 0x02, 0x03, 0x04}
	signature, err := s.tpm.Sign(0x81000001, digest, nil, nil, s.session)
	c.Assert(err, IsNil)
	c.Check(signature, DeepEquals, expectedSig)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(digest,
		&SigScheme{Scheme: AlgorithmNull},
		&TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull})
	expected := MustMarshalCommandPacket(CommandSign, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *signatureSuite) TestSignWithScheme(c *C) {
	expectedSig := &Signature{
		SigAlg: AlgorithmECDSA,
		ECC: &SignatureECC{
			Hash:       HashAlgorithmSHA256,
			SignatureR: []byte{0x01},
			SignatureS: []byte{0x02}}}
	s.queueSessionResponse(mu.MustMarshalToBytes(expectedSig))

	digest := Digest{0x01, 0x02, 0x03, 0x04}
	inScheme := &SigScheme{Scheme: AlgorithmECDSA, HashAlg: HashAlgorithmSHA256}
	validation := &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleOwner, Digest: Digest{0x0a}}
	signature, err := s.tpm.Sign(0x81000001, digest, inScheme, validation, s.session)
	c.Assert(err, IsNil)
	c.Check(signature, DeepEquals, expectedSig)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	params := mu.MustMarshalToBytes(digest, inScheme, validation)
	expected := MustMarshalCommandPacket(CommandSign, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *signatureSuite) TestSignError(c *C) {
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseCode(0x000005c4), nil))

	signature, err := s.tpm.Sign(0x81000001, Digest{0x01}, nil, nil, s.session)
	c.Check(IsTPMParameterError(err, ErrorValue, CommandSign, 5), internal_testutil.IsTrue)
	c.Check(signature, IsNil)
}

func (s *signatureSuite) TestSignDataUnsupportedDigest(c *C) {
	_, err := s.tpm.SignData(s.session, 0x81000001, HashAlgorithmNull, []byte("data"), make([]byte, 64))
	c.Check(err, ErrorMatches, "invalid hashAlg argument: unsupported digest algorithm")
	c.Check(s.transport.CommandLog(), HasLen, 0)
}

func (s *signatureSuite) TestSignDataShortBuffer(c *C) {
	n, err := s.tpm.SignData(s.session, 0x81000001, HashAlgorithmSHA256, []byte("data"), make([]byte, 16))
	c.Check(err, IsNil)
	c.Check(n, Equals, 32)
	c.Check(s.transport.CommandLog(), HasLen, 0)
}

func (s *signatureSuite) TestSignDataOneShot(c *C) {
	s.queueInputBufferSizeResponse(1024)

	digest := make(Digest, 32)
	for i := range digest {
		digest[i] = byte(i)
	}
	s.queueSessionResponse(mu.MustMarshalToBytes(digest))

	data := bytes.Repeat([]byte{0xa5}, 100)
	sig := make([]byte, 32)
	n, err := s.tpm.SignData(s.session, 0x81000001, HashAlgorithmSHA256, data, sig)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 32)
	c.Check(sig, DeepEquals, []byte(digest))

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 2)
	params := mu.MustMarshalToBytes(MaxBuffer(data), HashAlgorithmNull)
	expected := MustMarshalCommandPacket(CommandHMAC, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[1], DeepEquals, []byte(expected))
}

func (s *signatureSuite) TestSignDataOneShotBoundary(c *C) {
	s.queueInputBufferSizeResponse(1024)

	digest := make(Digest, 32)
	for i := range digest {
		digest[i] = byte(i)
	}
	s.queueSessionResponse(mu.MustMarshalToBytes(digest))

	// Exactly one input buffer still takes the one-shot path.
	data := bytes.Repeat([]byte{0xa5}, 1024)
	sig := make([]byte, 32)
	n, err := s.tpm.SignData(s.session, 0x81000001, HashAlgorithmSHA256, data, sig)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 32)
	c.Check(sig, DeepEquals, []byte(digest))

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 2)
	params := mu.MustMarshalToBytes(MaxBuffer(data), HashAlgorithmNull)
	expected := MustMarshalCommandPacket(CommandHMAC, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[1], DeepEquals, []byte(expected))
}

func (s *signatureSuite) TestSignDataShortDeviceDigest(c *C) {
	s.queueInputBufferSizeResponse(1024)
	s.queueSessionResponse(mu.MustMarshalToBytes(Digest{0x01}))

	_, err := s.tpm.SignData(s.session, 0x81000001, HashAlgorithmSHA256, []byte("data"), make([]byte, 32))
	var e *InvalidResponseError
	c.Assert(err, internal_testutil.ErrorAs, &e)
	c.Check(e.Command, Equals, CommandHMAC)
	c.Check(err, ErrorMatches, "TPM returned an invalid response for command TPM_CC_HMAC: "+
		"insufficient digest size \\(got 1, expected 32\\)")
}

func (s *signatureSuite) TestSignDataStreaming(c *C) {
	s.queueInputBufferSizeResponse(1024)

	// TPM2_HMAC_Start returns the sequence handle.
	payload := mu.MustMarshalToBytes(Handle(0x80000002), uint32(0),
		AuthResponse{SessionAttributes: AttrContinueSession})
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseSuccess, payload))

	// TPM2_SequenceUpdate has no response parameters.
	s.queueSessionResponse(nil)

	digest := make(Digest, 32)
	for i := range digest {
		digest[i] = byte(i)
	}
	s.queueSessionResponse(mu.MustMarshalToBytes(digest, &TkHashcheck{Tag: TagHashcheck, Hierarchy: HandleNull}))

	data := bytes.Repeat([]byte{0x5a}, 1025)
	sig := make([]byte, 32)
	n, err := s.tpm.SignData(s.session, 0x81000001, HashAlgorithmSHA256, data, sig)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 32)
	c.Check(sig, DeepEquals, []byte(digest))

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 4)

	params := mu.MustMarshalToBytes(Auth(nil), HashAlgorithmSHA256)
	expected := MustMarshalCommandPacket(CommandHMACStart, HandleList{0x81000001}, s.authArea(), params)
	c.Check(log[1], DeepEquals, []byte(expected))

	params = mu.MustMarshalToBytes(MaxBuffer(data[:1024]))
	expected = MustMarshalCommandPacket(CommandSequenceUpdate, HandleList{0x80000002}, s.authArea(), params)
	c.Check(log[2], DeepEquals, []byte(expected))

	params = mu.MustMarshalToBytes(MaxBuffer(data[1024:]), HandleNull)
	expected = MustMarshalCommandPacket(CommandSequenceComplete, HandleList{0x80000002}, s.authArea(), params)
	c.Check(log[3], DeepEquals, []byte(expected))
}

func (s *signatureSuite) TestSignDataStreamingUpdateError(c *C) {
	s.queueInputBufferSizeResponse(1024)

	payload := mu.MustMarshalToBytes(Handle(0x80000002), uint32(0),
		AuthResponse{SessionAttributes: AttrContinueSession})
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseSuccess, payload))

	s.transport.QueueResponse(makeResponse(TagSessions, ResponseCode(0x00000084), nil))

	data := bytes.Repeat([]byte{0x5a}, 2048)
	_, err := s.tpm.SignData(s.session, 0x81000001, HashAlgorithmSHA256, data, make([]byte, 32))
	c.Check(IsTPMError(err, ErrorValue, CommandSequenceUpdate), internal_testutil.IsTrue)
}
