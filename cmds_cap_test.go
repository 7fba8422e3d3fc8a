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

type capabilitiesSuite struct {
	transport *testutil.ScriptedTransport
	tpm       *TSSContext
}

var _ = Suite(&capabilitiesSuite{})

func (s *capabilitiesSuite) SetUpTest(c *C) {
	s.transport = testutil.NewScriptedTransport()
	tpm, err := NewTSSContext(s.transport)
	c.Assert(err, IsNil)
	s.tpm = tpm
}

func (s *capabilitiesSuite) queuePropertyResponse(property Property, value uint32) {
	payload := mu.MustMarshalToBytes(true,
		CapabilityData{
			Capability:    CapabilityTPMProperties,
			TPMProperties: []TaggedProperty{{Property: property, Value: value}}})
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, payload))
}

func (s *capabilitiesSuite) TestGetCapability(c *C) {
	s.queuePropertyResponse(PropertyManufacturer, 0x12345678)

	moreData, data, err := s.tpm.GetCapability(CapabilityTPMProperties, uint32(PropertyManufacturer), 1)
	c.Assert(err, IsNil)
	c.Check(moreData, Equals, true)
	c.Check(data.Capability, Equals, CapabilityTPMProperties)
	c.Assert(data.TPMProperties, HasLen, 1)
	c.Check(data.TPMProperties[0].Property, Equals, PropertyManufacturer)
	c.Check(data.TPMProperties[0].Value, Equals, uint32(0x12345678))

	log := s.transport.CommandLog()
	c.Assert(log, HasLen, 1)
	expected := MustMarshalCommandPacket(CommandGetCapability, nil, nil,
		mu.MustMarshalToBytes(CapabilityTPMProperties, uint32(PropertyManufacturer), uint32(1)))
	c.Check(log[0], DeepEquals, []byte(expected))
}

func (s *capabilitiesSuite) TestGetCapabilityUnsupportedCapability(c *C) {
	// Capability unions other than TPM properties cannot be decoded.
	payload := mu.MustMarshalToBytes(false, uint32(CapabilityHandles), uint32(0))
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, payload))

	_, _, err := s.tpm.GetCapability(CapabilityHandles, 0, 1)
	c.Check(err, ErrorMatches, "TPM returned an invalid response for command TPM_CC_GetCapability: .*invalid selector value: .*")
}

func (s *capabilitiesSuite) TestGetTPMProperty(c *C) {
	s.queuePropertyResponse(PropertyInputBuffer, 1024)

	value, err := s.tpm.GetTPMProperty(PropertyInputBuffer)
	c.Assert(err, IsNil)
	c.Check(value, Equals, uint32(1024))
}

func (s *capabilitiesSuite) TestGetTPMPropertyEchoMismatch(c *C) {
	s.queuePropertyResponse(PropertyManufacturer, 1024)

	_, err := s.tpm.GetTPMProperty(PropertyInputBuffer)
	c.Assert(err, ErrorMatches, ".*unexpected property .* in response")

	var e *InvalidResponseError
	c.Check(err, internal_testutil.ErrorAs, &e)
}

func (s *capabilitiesSuite) TestGetTPMPropertyCountMismatch(c *C) {
	payload := mu.MustMarshalToBytes(false,
		CapabilityData{
			Capability: CapabilityTPMProperties,
			TPMProperties: []TaggedProperty{
				{Property: PropertyInputBuffer, Value: 1024},
				{Property: PropertyManufacturer, Value: 4}}})
	s.transport.QueueResponse(makeResponse(TagNoSessions, ResponseSuccess, payload))

	_, err := s.tpm.GetTPMProperty(PropertyInputBuffer)
	c.Check(err, ErrorMatches, `.*unexpected number of properties in response \(got 2, expected 1\)`)
}

func (s *capabilitiesSuite) TestInputBufferSize(c *C) {
	s.queuePropertyResponse(PropertyInputBuffer, 2048)

	size, err := s.tpm.InputBufferSize()
	c.Assert(err, IsNil)
	c.Check(size, Equals, 2048)

	// The property is cached after the first query.
	size, err = s.tpm.InputBufferSize()
	c.Assert(err, IsNil)
	c.Check(size, Equals, 2048)
	c.Check(s.transport.CommandLog(), HasLen, 1)
}

func (s *capabilitiesSuite) TestInputBufferSizeDefault(c *C) {
	// A TPM that reports no value gets the spec defined minimum.
	s.queuePropertyResponse(PropertyInputBuffer, 0)

	size, err := s.tpm.InputBufferSize()
	c.Assert(err, IsNil)
	c.Check(size, Equals, MaxDigestBuffer)
}
