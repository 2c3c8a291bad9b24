package xjson

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// RepairJSON tries to convert a string into a valid JSON RawMessage.
// Strategy:
// 1) If empty or only whitespace, return {}.
// 2) If valid JSON, use it directly.
// 3) Try jsonrepair; if repaired is valid JSON, use it.
// 4) Fallback to {}.
// The second return value reports whether the input had to be changed.
func RepairJSON(s string) (json.RawMessage, bool) {
	if strings.TrimSpace(s) == "" {
		return json.RawMessage(EmptyJSON), s != ""
	}

	if json.Valid([]byte(s)) {
		return json.RawMessage(s), false
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err == nil && json.Valid([]byte(repaired)) {
		return json.RawMessage(repaired), true
	}

	return json.RawMessage(EmptyJSON), true
}
