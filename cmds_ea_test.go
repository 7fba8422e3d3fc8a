// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss_test

import (
	. "gopkg.in/check.v1"

	. "github.com/utpm/go-tss"
	internal_testutil "github.com/utpm/go-tss/internal/testutil"
	"github.com/utpm/go-tss/mu"
	"github.com/utpm/go-tss/testutil"
)

type policySuite struct {
	transport *testutil.ScriptedTransport
	tpm       *TSSContext
}

var _ = Suite(&policySuite{})

func (s *policySuite) SetUpTest(c *C) {
	s.transport = testutil.NewScriptedTransport()
	tpm, err := NewTSSContext(s.transport)
	c.Assert(err, IsNil)
	s.tpm = tpm
}

func (s *policySuite) TestPolicySecret(c *C) {
	expectedTimeout := Timeout{0x01, 0x02, 0x03, 0x04}
	params := mu.MustMarshalToBytes(expectedTimeout,
		&TkAuth{Tag: TagAuthSecret, Hierarchy: HandleOwner, Digest: Digest{0x05}})
	payload := mu.MustMarshalToBytes(uint32(len(params)), mu.RawBytes(params),
		AuthResponse{SessionAttributes: AttrContinueSession})
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseSuccess, payload))

	policySession := &Session{In: AuthCommand{SessionHandle: 0x03000000}}
	session := NewPasswordSession([]byte("1234"))
	timeout, policyTicket, err := s.tpm.PolicySecret(HandleOwner, policySession, nil, nil, Nonce("ref"), 100, session)
	c.Assert(err, IsNil)
	c.Check(timeout, DeepEquals, expectedTimeout)
	c.Check(policyTicket, DeepEquals, &TkAuth{Tag: TagAuthSecret, Hierarchy: HandleOwner, Digest: Digest{0x05}})

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	authArea := []AuthCommand{{SessionHandle: HandlePW, SessionAttributes: AttrContinueSession, HMAC: Auth("1234")}}
	cmdParams := mu.MustMarshalToBytes(Nonce(nil), Digest(nil), Nonce("ref"), int32(100))
	expected := MustMarshalCommandPacket(CommandPolicySecret, HandleList{HandleOwner, 0x03000000}, authArea, cmdParams)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *policySuite) TestPolicySecretError(c *C) {
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseCode(0x000009a2), nil))

	policySession := &Session{In: AuthCommand{SessionHandle: 0x03000000}}
	session := NewPasswordSession(nil)
	timeout, policyTicket, err := s.tpm.PolicySecret(HandleOwner, policySession, nil, nil, nil, 0, session)
	c.Check(IsTPMSessionError(err, ErrorBadAuth, CommandPolicySecret, 1), internal_testutil.IsTrue)
	c.Check(timeout, IsNil)
	c.Check(policyTicket, IsNil)
}
