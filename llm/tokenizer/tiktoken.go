package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// modelEncodings maps model name prefixes to their tiktoken encoding.
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4.1":       "o200k_base",
	"gpt-oss":       "o200k_base",
	"o1":            "o200k_base",
	"o3":            "o200k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// EncodingForModel returns the encoding used for the model.
// The longest matching prefix wins, unknown models use cl100k_base.
func EncodingForModel(model string) string {
	model = strings.TrimPrefix(model, "ollama/")

	best := ""
	encoding := defaultEncoding

	for prefix, enc := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
			encoding = enc
		}
	}

	return encoding
}

// TiktokenCounter counts tokens with a tiktoken encoding.
// The encoding is loaded on first use, it may download the BPE ranks.
type TiktokenCounter struct {
	encoding string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenCounter creates a counter for the model, encoding overrides the model lookup when set.
func NewTiktokenCounter(model, encoding string) *TiktokenCounter {
	if encoding == "" {
		encoding = EncodingForModel(model)
	}

	return &TiktokenCounter{encoding: encoding}
}

func (t *TiktokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}

		t.enc = enc
	})

	return t.initErr
}

func (t *TiktokenCounter) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	if err := t.init(); err != nil {
		return 0, err
	}

	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenCounter) Encoding() string {
	return t.encoding
}

func (t *TiktokenCounter) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
