package transformer

import (
	"errors"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidResponse = errors.New("invalid response")
	ErrInvalidToolCall = errors.New("invalid tool call")
)
