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

type contextSuite struct {
	transport *testutil.ScriptedTransport
	tpm       *TSSContext
}

var _ = Suite(&contextSuite{})

func (s *contextSuite) SetUpTest(c *C) {
	s.transport = testutil.NewScriptedTransport()
	tpm, err := NewTSSContext(s.transport)
	c.Assert(err, IsNil)
	s.tpm = tpm
}

func (s *contextSuite) TestFlushContext(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, nil))

	c.Check(s.tpm.FlushContext(0x02000000), IsNil)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	expected := MustMarshalCommandPacket(CommandFlushContext, HandleList{0x02000000}, nil, nil)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *contextSuite) TestFlushContextError(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseCode(0x0000018b), nil))

	err := s.tpm.FlushContext(0x02000000)
	c.Check(IsTPMHandleError(err, ErrorHandle, CommandFlushContext, 1), internal_testutil.IsTrue)
}

func (s *contextSuite) TestContextLoad(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess,
		mu.MustMarshalToBytes(Handle(0x02000001))))

	context := []byte{0x00, 0x00, 0x00, 0x01, 0xa5, 0x5a}
	handle, err := s.tpm.ContextLoad(context)
	c.Assert(err, IsNil)
	c.Check(handle, Equals, Handle(0x02000001))

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	expected := MustMarshalCommandPacket(CommandContextLoad, nil, nil, context)
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *contextSuite) TestEvictControl(c *C) {
	payload := mu.MustMarshalToBytes(uint32(0), AuthResponse{SessionAttributes: AttrContinueSession})
	s.transport.QueueResponse(makeResponse(TagSessions, ResponseSuccess, payload))

	session := NewPasswordSession(nil)
	c.Check(s.tpm.EvictControl(HandleOwner, 0x80000001, 0x81000001, session), IsNil)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	authArea := []AuthCommand{{SessionHandle: HandlePW, SessionAttributes: AttrContinueSession}}
	params := mu.MustMarshalToBytes(Handle(0x81000001))
	expected := MustMarshalCommandPacket(CommandEvictControl, HandleList{HandleOwner, 0x80000001}, authArea, params)
	c.Check(log[0], DeepEquals, []byte(expected))
}
