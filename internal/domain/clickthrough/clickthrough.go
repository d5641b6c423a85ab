// Package clickthrough encodes the opaque token carried by result links through
// the click redirect endpoint.
package clickthrough

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Param is the query parameter holding the encoded token.
const Param = "d"

// ErrInvalidToken is returned when a token cannot be decoded into a usable payload.
var ErrInvalidToken = errors.New("invalid clickthrough token")

// Payload is the data needed to resolve a click back to a record and report it upstream.
type Payload struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Tags       []string `json:"tags,omitempty"`
	Query      string   `json:"query,omitempty"`
	RequestID  string   `json:"requestId,omitempty"`
	DocumentID string   `json:"documentId,omitempty"`
	EngineName string   `json:"engineName,omitempty"`
}

// Loggable reports whether the payload carries enough context to log the click upstream.
func (p Payload) Loggable() bool {
	return p.EngineName != "" && p.Query != "" && p.DocumentID != ""
}

// UnmarshalJSON accepts id as a JSON string or number.
func (p *Payload) UnmarshalJSON(data []byte) error {
	type plain Payload
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.ID = ""
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	var id string
	if err := json.Unmarshal(aux.ID, &id); err == nil {
		p.ID = id
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(aux.ID, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	p.ID = n.String()
	return nil
}

// Encode serializes p as base64(JSON).
func Encode(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal clickthrough payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a token produced by Encode. id and type are mandatory.
func Decode(token string) (Payload, error) {
	if token == "" {
		return Payload{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if len(data) == 0 {
		return Payload{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if p.ID == "" || p.Type == "" {
		return Payload{}, fmt.Errorf("%w: id and type are required", ErrInvalidToken)
	}
	return p, nil
}

// Link builds "/<base>?d=<token>" for p.
func Link(base string, p Payload) (string, error) {
	token, err := Encode(p)
	if err != nil {
		return "", err
	}
	return "/" + strings.Trim(base, "/") + "?" + url.Values{Param: {token}}.Encode(), nil
}
