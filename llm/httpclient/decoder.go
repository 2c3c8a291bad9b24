package httpclient

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/looplj/ollamabridge/llm/streams"
)

// maxLineSize bounds a single NDJSON line, a chunk carrying a large tool call
// can exceed the default scanner buffer.
const maxLineSize = 8 * 1024 * 1024

type ndjsonStream struct {
	reader  io.Reader
	scanner *bufio.Scanner
	current *StreamEvent
}

// NewNDJSONStream returns a stream of the lines of a newline delimited JSON body.
// Blank lines are skipped, each remaining line becomes one event.
// Closing the stream closes the reader when it is an io.Closer.
func NewNDJSONStream(r io.Reader) streams.Stream[*StreamEvent] {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &ndjsonStream{reader: r, scanner: scanner}
}

func (s *ndjsonStream) Next() bool {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		data := make([]byte, len(line))
		copy(data, line)

		s.current = &StreamEvent{
			Type: "ndjson",
			Data: data,
		}

		return true
	}

	s.current = nil

	return false
}

func (s *ndjsonStream) Current() *StreamEvent {
	return s.current
}

func (s *ndjsonStream) Err() error {
	if err := s.scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ndjson stream: %w", err)
	}

	return nil
}

func (s *ndjsonStream) Close() error {
	if closer, ok := s.reader.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// DecodeNDJSON reads the whole NDJSON body into stream events.
func DecodeNDJSON(r io.Reader) ([]*StreamEvent, error) {
	events, err := streams.All(NewNDJSONStream(r))
	if err != nil {
		return nil, err
	}

	return events, nil
}
