package jellyfin

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Number handles JSON fields that can be 5, "5", something unparseable or
// absent. Servers disagree on whether channel numbers are numbers or
// strings; callers need to know whether a usable integer arrived at all.
type Number struct {
	value int
	valid bool
}

// Value returns the parsed integer and whether one was present.
func (n Number) Value() (int, bool) {
	return n.value, n.valid
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	// JSON string: "502". Anything not an exact integer is treated as
	// absent, not as an error (e.g. "1.1" sub-channel notation).
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if i, err := strconv.Atoi(s); err == nil {
			n.value = i
			n.valid = true
		}
		return nil
	}

	// JSON number: only integral values count.
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		// Malformed number field degrades to absent.
		return nil
	}
	if i, err := num.Int64(); err == nil {
		n.value = int(i)
		n.valid = true
	}
	return nil
}
