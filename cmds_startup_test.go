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

type startupSuite struct {
	transport *testutil.ScriptedTransport
	tpm       *TSSContext
}

var _ = Suite(&startupSuite{})

func (s *startupSuite) SetUpTest(c *C) {
	s.transport = testutil.NewScriptedTransport()
	tpm, err := NewTSSContext(s.transport)
	c.Assert(err, IsNil)
	s.tpm = tpm
}

func (s *startupSuite) TestStartupClear(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, nil))

	c.Check(s.tpm.Startup(StartupClear), IsNil)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	expected := MustMarshalCommandPacket(CommandStartup, nil, nil, mu.MustMarshalToBytes(StartupClear))
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *startupSuite) TestStartupState(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, nil))

	c.Check(s.tpm.Startup(StartupState), IsNil)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	expected := MustMarshalCommandPacket(CommandStartup, nil, nil, mu.MustMarshalToBytes(StartupState))
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *startupSuite) TestStartupError(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseCode(0x00000100), nil))

	err := s.tpm.Startup(StartupClear)
	c.Check(IsTPMError(err, ErrorInitialize, CommandStartup), internal_testutil.IsTrue)
}

func (s *startupSuite) TestShutdown(c *C) {
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, nil))

	c.Check(s.tpm.Shutdown(StartupState), IsNil)

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	expected := MustMarshalCommandPacket(CommandShutdown, nil, nil, mu.MustMarshalToBytes(StartupState))
	c.Check(log[0], DeepEquals, []byte(expected))
}
