// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

// PolicySecret executes the TPM2_PolicySecret command to include a secret
// based authorization in the policy session identified by policySession.
// The authHandle argument names the entity whose secret is proven, and
// session provides the authorization for it.
//
// The nonceTPM, cpHashA and policyRef arguments may be empty. A non-zero
// expiration requests a time limit on the policy, and a negative one
// additionally requests the returned ticket.
func (t *TSSContext) PolicySecret(authHandle Handle, policySession *Session, nonceTPM Nonce, cpHashA Digest, policyRef Nonce, expiration int32, session *Session) (Timeout, *TkAuth, error) {
	var timeout Timeout
	var policyTicket TkAuth

	if err := t.RunCommand(CommandPolicySecret, []*Session{session},
		authHandle, policySession.Handle(),
		Delimiter,
		nonceTPM, cpHashA, policyRef, expiration,
		Delimiter, Delimiter,
		&timeout, &policyTicket); err != nil {
		return nil, nil, err
	}

	return timeout, &policyTicket, nil
}
