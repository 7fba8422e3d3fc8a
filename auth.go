// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"fmt"
)

// AuthCommand corresponds to the TPMS_AUTH_COMMAND type, and is a single
// record in the authorization area of a command.
type AuthCommand struct {
	SessionHandle     Handle
	Nonce             Nonce
	SessionAttributes SessionAttributes
	HMAC              Auth
}

// AuthResponse corresponds to the TPMS_AUTH_RESPONSE type, and is a single
// record in the authorization area of a response.
type AuthResponse struct {
	Nonce             Nonce
	SessionAttributes SessionAttributes
	HMAC              Auth
}

// Session holds the state of an authorization session across commands. In
// is the record submitted with each command that uses the session, and Out
// is the record most recently returned by the TPM for it.
//
// A session is created with NewPasswordSession or
// TSSContext.StartAuthSession and passed to the command methods of
// TSSContext that take one.
type Session struct {
	In  AuthCommand
	Out AuthResponse
}

// NewPasswordSession returns a session that authorizes with a plaintext
// authorization value. The session record references the permanent password
// session handle, carries no nonce, and places the authorization value in
// the hmac field.
func NewPasswordSession(authValue Auth) *Session {
	return &Session{
		In: AuthCommand{
			SessionHandle:     HandlePW,
			SessionAttributes: AttrContinueSession,
			HMAC:              authValue},
		Out: AuthResponse{
			SessionAttributes: AttrContinueSession}}
}

// Handle returns the session handle referenced by the session's command
// record.
func (s *Session) Handle() Handle {
	return s.In.SessionHandle
}

// NonceTPM returns the nonce most recently returned by the TPM for this
// session. It is empty for password sessions.
func (s *Session) NonceTPM() Nonce {
	return s.Out.Nonce
}

func buildCommandAuthArea(sessions ...*Session) []AuthCommand {
	var area []AuthCommand
	for _, s := range sessions {
		if s == nil {
			continue
		}
		area = append(area, s.In)
	}
	return area
}

func processResponseAuthArea(sessions []*Session, authArea []AuthResponse) error {
	var active []*Session
	for _, s := range sessions {
		if s == nil {
			continue
		}
		active = append(active, s)
	}

	if len(authArea) != len(active) {
		return fmt.Errorf("unexpected number of response auth records (got %d, expected %d)", len(authArea), len(active))
	}

	for i, s := range active {
		s.Out = authArea[i]
	}
	return nil
}
