// Package signing issues and verifies the HMAC-protected OAuth state
// parameter, binding a callback to the browser that started the flow.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

type Signer struct {
	Secret []byte
}

func New(secret string) *Signer {
	return &Signer{Secret: []byte(secret)}
}

// State carries the data round-tripped through the provider.
type State struct {
	Nonce    string
	Redirect string
	Exp      int64
}

// Encode packs and signs a state value: nonce.exp.redirect_b64.sig.
func (s *Signer) Encode(nonce, redirect string, exp time.Time) string {
	red := base64.RawURLEncoding.EncodeToString([]byte(redirect))
	unix := strconv.FormatInt(exp.Unix(), 10)
	sig := s.signValue(nonce, red, unix)
	return strings.Join([]string{nonce, unix, red, sig}, ".")
}

// Decode verifies the signature and expiry and unpacks the state.
func (s *Signer) Decode(raw string) (State, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return State{}, errors.New("malformed state")
	}
	nonce, unix, red, sig := parts[0], parts[1], parts[2], parts[3]
	if !hmac.Equal([]byte(sig), []byte(s.signValue(nonce, red, unix))) {
		return State{}, errors.New("state signature mismatch")
	}
	exp, err := strconv.ParseInt(unix, 10, 64)
	if err != nil {
		return State{}, errors.New("malformed state expiry")
	}
	if time.Now().Unix() > exp {
		return State{}, errors.New("state expired")
	}
	redirect, err := base64.RawURLEncoding.DecodeString(red)
	if err != nil {
		return State{}, errors.New("malformed state redirect")
	}
	return State{Nonce: nonce, Redirect: string(redirect), Exp: exp}, nil
}

func (s *Signer) signValue(nonce, redirect, exp string) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(nonce))
	mac.Write([]byte("|"))
	mac.Write([]byte(redirect))
	mac.Write([]byte("|"))
	mac.Write([]byte(exp))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
