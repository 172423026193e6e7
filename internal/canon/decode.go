package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses canonical (or any well-formed JSON) bytes back into a
// Value tree. json.Number is used during decode so integral and
// fractional literals map back to Int and Float respectively, mirroring
// the distinction EncodeNormalForm preserves on the way out.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("canon: decode: %w", err)
	}
	return FromJSON(raw)
}
