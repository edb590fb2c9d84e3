// Package token implements the stateless bearer-token scheme used for
// meeting sessions: base64(JSON header) "." base64(JSON payload) "."
// base64(HMAC-SHA256 over the first two segments), keyed by a server-held
// secret. Tokens carry no expiry claim; callers re-derive liveness by
// checking that the referenced meeting still exists.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("bad token signature")
)

type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

type Claims struct {
	Meeting  string `json:"Meeting"`
	Username string `json:"Username"`
	Admin    bool   `json:"Admin"`
}

// Decoded is the result of a successful Verify: the parsed payload plus the
// echoed header.
type Decoded struct {
	Header Header
	Claims Claims
}

type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue builds a three-segment signed token for the given session claims.
func (c *Codec) Issue(meetingID, username string, admin bool) (string, error) {
	headerJSON, err := json.Marshal(Header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}

	payloadJSON, err := json.Marshal(Claims{
		Meeting:  meetingID,
		Username: username,
		Admin:    admin,
	})
	if err != nil {
		return "", err
	}

	message := base64.StdEncoding.EncodeToString(headerJSON) +
		"." + base64.StdEncoding.EncodeToString(payloadJSON)

	return message + "." + base64.StdEncoding.EncodeToString(c.sign(message)), nil
}

// Verify checks segment structure and signature and returns the decoded
// claims. It does NOT check that the referenced meeting still exists.
func (c *Codec) Verify(tok string) (*Decoded, error) {
	segments := strings.Split(tok, ".")
	if len(segments) != 3 {
		return nil, ErrMalformedToken
	}

	headerJSON, err := base64.StdEncoding.DecodeString(segments[0])
	if err != nil {
		return nil, ErrMalformedToken
	}
	payloadJSON, err := base64.StdEncoding.DecodeString(segments[1])
	if err != nil {
		return nil, ErrMalformedToken
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, ErrMalformedToken
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, ErrMalformedToken
	}

	gotSig, err := base64.StdEncoding.DecodeString(segments[2])
	if err != nil {
		return nil, ErrMalformedToken
	}

	if !hmac.Equal(gotSig, c.sign(segments[0]+"."+segments[1])) {
		return nil, ErrBadSignature
	}

	return &Decoded{Header: header, Claims: claims}, nil
}

func (c *Codec) sign(message string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(message))
	return mac.Sum(nil)
}
