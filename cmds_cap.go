// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"fmt"

	"github.com/golang/glog"
)

// GetCapability executes the TPM2_GetCapability command, requesting
// propertyCount values of the specified capability starting from property.
// The moreData return value indicates whether there are more values of the
// requested capability than were returned.
//
// Only the TPM-properties capability can be decoded by this package. A
// response carrying a different capability fails with an
// *InvalidResponseError.
func (t *TSSContext) GetCapability(capability Capability, property, propertyCount uint32) (moreData bool, data *CapabilityData, err error) {
	data = new(CapabilityData)
	if err := t.RunCommand(CommandGetCapability, nil,
		Delimiter,
		capability, property, propertyCount,
		Delimiter, Delimiter,
		&moreData, data); err != nil {
		return false, nil, err
	}
	return moreData, data, nil
}

// GetTPMProperty returns the value of the specified TPM property, executing
// a TPM2_GetCapability command requesting a single value of the
// TPM-properties capability.
//
// The response is checked against the request: it must carry the
// TPM-properties capability, contain exactly one property, and that
// property must be the one that was requested. A response that fails any of
// these checks produces an *InvalidResponseError.
func (t *TSSContext) GetTPMProperty(property Property) (uint32, error) {
	_, data, err := t.GetCapability(CapabilityTPMProperties, uint32(property), 1)
	if err != nil {
		glog.Errorf("cannot fetch property %v: %v", property, err)
		return 0, err
	}

	if data.Capability != CapabilityTPMProperties {
		return 0, &InvalidResponseError{CommandGetCapability,
			fmt.Sprintf("unexpected capability %v in response", data.Capability)}
	}
	if len(data.TPMProperties) != 1 {
		return 0, &InvalidResponseError{CommandGetCapability,
			fmt.Sprintf("unexpected number of properties in response (got %d, expected 1)", len(data.TPMProperties))}
	}
	if data.TPMProperties[0].Property != property {
		return 0, &InvalidResponseError{CommandGetCapability,
			fmt.Sprintf("unexpected property %v in response", data.TPMProperties[0].Property)}
	}

	return data.TPMProperties[0].Value, nil
}
