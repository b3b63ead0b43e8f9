// Package jsoncodec centralises JSON encoding so every state dump and journal
// line goes through the same sonic configuration.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var std = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return std.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return std.Unmarshal(data, v)
}

// Encode writes v to w followed by a newline.
func Encode(w io.Writer, v any) error {
	return std.NewEncoder(w).Encode(v)
}

// EncodeIndent writes v to w as two-space indented JSON followed by a newline.
func EncodeIndent(w io.Writer, v any) error {
	enc := std.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func Decode(r io.Reader, v any) error {
	return std.NewDecoder(r).Decode(v)
}
