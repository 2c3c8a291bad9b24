// Package tokenizer counts tokens of a text, it is used as the usage fallback
// when a provider omits its own token counts.
package tokenizer
