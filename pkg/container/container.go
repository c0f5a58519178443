// Package container encodes the on-disk envelope of a vault file.
//
// The envelope is a flat JSON object with two standard-base64 fields:
//
//	{"saltBase64": "...", "encryptedDataBase64": "..."}
//
// where the encrypted data is the sealed blob produced by crypto.Seal. The
// format carries no version field.
package container

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedContainer is returned by Decode for any input that is not a
// well-formed envelope. The wrapped error describes the parse reason.
var ErrMalformedContainer = errors.New("container: malformed container")

type envelope struct {
	SaltBase64          string `json:"saltBase64"`
	EncryptedDataBase64 string `json:"encryptedDataBase64"`
}

// Field names as they appear on disk. Decode matches them exactly.
const (
	fieldSalt          = "saltBase64"
	fieldEncryptedData = "encryptedDataBase64"
)

// Encode renders salt and sealed as an envelope.
func Encode(salt, sealed []byte) ([]byte, error) {
	data, err := json.Marshal(envelope{
		SaltBase64:          base64.StdEncoding.EncodeToString(salt),
		EncryptedDataBase64: base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return nil, fmt.Errorf("container: failed to encode: %w", err)
	}
	return data, nil
}

// Decode parses an envelope and returns the raw salt and sealed bytes.
//
// Decode does not check the salt length or the sealed layout; that is left
// to the cryptographic layer.
func Decode(data []byte) (salt, sealed []byte, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Keys must match exactly, so decode to a raw map first.
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, nil, malformed(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, malformed(errors.New("trailing data after object"))
	}
	for k := range fields {
		if k != fieldSalt && k != fieldEncryptedData {
			return nil, nil, malformed(fmt.Errorf("unknown field %q", k))
		}
	}

	saltText, err := stringField(fields, fieldSalt)
	if err != nil {
		return nil, nil, err
	}
	dataText, err := stringField(fields, fieldEncryptedData)
	if err != nil {
		return nil, nil, err
	}

	salt, err = base64.StdEncoding.DecodeString(saltText)
	if err != nil {
		return nil, nil, malformed(fmt.Errorf("saltBase64: %w", err))
	}
	sealed, err = base64.StdEncoding.DecodeString(dataText)
	if err != nil {
		return nil, nil, malformed(fmt.Errorf("encryptedDataBase64: %w", err))
	}
	return salt, sealed, nil
}

// stringField returns the string value of a required field. A missing
// field and a null are both errors.
func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", malformed(fmt.Errorf("missing %s", name))
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(fmt.Errorf("%s: %w", name, err))
	}
	if s == nil {
		return "", malformed(fmt.Errorf("missing %s", name))
	}
	return *s, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedContainer, err)
}
