package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an entity identifier that the backend emits either as a JSON string or a number.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool { return id == "" }

// Scalar is a display value the backend may send as a string or a number ("99.9%" or 99.9).
type Scalar string

// UnmarshalJSON accepts strings, numbers and null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*s = Scalar(v)
	return nil
}

func decodeScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", data)
	}
	return n.String(), nil
}
