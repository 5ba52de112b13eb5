package dto

import (
	"bytes"
	"fmt"
	"strconv"
)

// Flag is a boolean accepted in the loose shapes POS clients send:
// true/false, 1/0, "true"/"false", "1"/"0", "" and null.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = unq
		if s == "" {
			*f = false
			return nil
		}
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", s)
	}
	*f = Flag(v)
	return nil
}

func (f Flag) Bool() bool { return bool(f) }
