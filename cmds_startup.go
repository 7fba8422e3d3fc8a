// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

// Startup executes the TPM2_Startup command with the specified startup
// type.
func (t *TSSContext) Startup(startupType StartupType) error {
	return t.RunCommand(CommandStartup, nil, Delimiter, startupType)
}

// Shutdown executes the TPM2_Shutdown command with the specified shutdown
// type, which prepares the TPM for a loss of power.
func (t *TSSContext) Shutdown(shutdownType StartupType) error {
	return t.RunCommand(CommandShutdown, nil, Delimiter, shutdownType)
}
