// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

/*
Package tss implements a minimal TPM Software Stack for communicating with
TPM 2.0 devices.

This documentation refers to TPM commands and types that are described in more
detail in the TPM 2.0 Library Specification, which can be found at
https://trustedcomputinggroup.org/resource/tpm-library-specification/.
Knowledge of this specification is assumed in this documentation.

Communication with Linux TPM character devices and TPM simulators implementing
the Microsoft TPM2 simulator interface is supported. The core type by which
consumers of this package communicate with a TPM is TSSContext.

# Quick start

In order to create a new TSSContext that can be used to communicate with a
Linux TPM character device:

	transport, err := tss.OpenTPMDevice("/dev/tpm0")
	if err != nil {
		return err
	}
	tpm, err := tss.NewTSSContext(transport)
	if err != nil {
		return err
	}
	defer tpm.Close()

Passing a nil transport to NewTSSContext autodetects a TPM interface, trying
the Linux character devices first and falling back to a simulator listening
on the default local ports.

Each TPM command is exposed as a method on TSSContext. Command parameters and
responses are marshalled to and from the TPM wire format by the mu package in
this module.

# Authorization

Commands that operate on entities requiring authorization accept a *Session
argument. NewPasswordSession creates a session that authorizes with a
cleartext auth value, and NewAuthSession starts a real authorization session
on the device with TPM2_StartAuthSession.
*/
package tss
