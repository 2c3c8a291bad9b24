package xjson

import (
	"bytes"
	"encoding/json"
)

var (
	EmptyJSON = []byte("{}")
	NullJSON  = []byte("null")
)

func MustMarshalString(v any) string {
	return string(MustMarshal(v))
}

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}

// IsNull reports whether v is empty or the JSON null literal.
func IsNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, NullJSON)
}
