package xus

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
)

// utf16BE never consumes or emits a byte order mark: a leading U+FEFF is
// ordinary text in a record.
var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// decodeText decodes one record body. Unpaired surrogates are rejected
// rather than replaced, so every accepted record re-encodes to the same bytes.
func decodeText(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", apperrors.Newf(apperrors.InvalidText, "odd byte length %d", len(b))
	}
	if at := unpairedSurrogate(b); at >= 0 {
		return "", apperrors.Newf(apperrors.InvalidText, "unpaired surrogate at code unit %d", at)
	}
	out, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return "", &apperrors.FormatError{Kind: apperrors.InvalidText, Err: err}
	}
	return string(out), nil
}

// unpairedSurrogate returns the index of the first code unit that is not
// part of a valid surrogate pair, or -1.
func unpairedSurrogate(b []byte) int {
	n := len(b) / 2
	for i := 0; i < n; i++ {
		u := rune(b[2*i])<<8 | rune(b[2*i+1])
		if !utf16.IsSurrogate(u) {
			continue
		}
		// High surrogates are D800-DBFF and must be followed by a low one.
		if u >= 0xDC00 || i+1 >= n {
			return i
		}
		next := rune(b[2*i+2])<<8 | rune(b[2*i+3])
		if next < 0xDC00 || next > 0xDFFF {
			return i
		}
		i++
	}
	return -1
}

// encodeText encodes s as UTF-16BE and returns the bytes with their code-unit
// count.
func encodeText(s string) ([]byte, uint16, error) {
	if !utf8.ValidString(s) {
		return nil, 0, apperrors.New(apperrors.MalformedDocument, "text is not valid UTF-8")
	}
	b, err := utf16BE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, 0, &apperrors.FormatError{Kind: apperrors.MalformedDocument, Err: err}
	}
	if len(b)%2 != 0 {
		panic("xus: UTF-16 encoder produced an odd byte count")
	}
	units := len(b) / 2
	if units > MaxRecordLength {
		return nil, 0, apperrors.Newf(apperrors.MalformedDocument,
			"text of %d code units exceeds the record limit of %d", units, MaxRecordLength)
	}
	return b, uint16(units), nil
}
