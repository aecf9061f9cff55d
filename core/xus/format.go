// Package xus reads and writes XUS string tables.
//
// An XUS file is a fixed 12-byte header followed by length-prefixed UTF-16BE
// text records. All integers are big-endian:
//
//	offset  size  field
//	0       6     magic tag (selects the dialect)
//	6       4     total file size
//	10      2     item count (dialect dependent)
//	12      ...   records: uint16 code-unit count, then the UTF-16BE text
//
// The two dialects differ only in how the item count is stored. DialectA
// stores the number of records; DialectB stores half of it.
package xus

import (
	"fmt"

	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
)

// Extension is the conventional file extension for XUS tables.
const Extension = ".xus"

// Header layout.
const (
	MagicSize       = 6
	SizeOffset      = 6
	CountOffset     = 10
	HeaderSize      = 12
	MaxRecordLength = 0xFFFF
)

// Magic is the 6-byte tag at the start of every XUS file.
type Magic [MagicSize]byte

// Recognized tags.
var (
	MagicA = Magic{'X', 'U', 'I', 'S', 0x01, 0x02}
	MagicB = Magic{'X', 'U', 'I', 'S', 0x01, 0x00}
)

func (m Magic) String() string {
	return fmt.Sprintf("%q", m[:])
}

// Dialect identifies a header variant and its item-count convention.
type Dialect uint8

const (
	// DialectUnknown is the zero value; it has no count strategy.
	DialectUnknown Dialect = iota
	// DialectA stores the item count directly.
	DialectA
	// DialectB stores half the item count.
	DialectB
)

// countStrategy converts between the stored count field and the number of
// records in the file.
type countStrategy struct {
	decode func(raw uint16) int
	encode func(logical int) (uint16, error)
}

type dialectInfo struct {
	name   string
	magic  Magic
	counts countStrategy
}

var dialects = map[Dialect]dialectInfo{
	DialectA: {
		name:  "A",
		magic: MagicA,
		counts: countStrategy{
			decode: func(raw uint16) int { return int(raw) },
			encode: func(logical int) (uint16, error) {
				if logical > 0xFFFF {
					return 0, apperrors.Newf(apperrors.MalformedDocument,
						"%d items exceed the dialect A limit of %d", logical, 0xFFFF)
				}
				return uint16(logical), nil
			},
		},
	},
	DialectB: {
		name:  "B",
		magic: MagicB,
		counts: countStrategy{
			decode: func(raw uint16) int { return int(raw) * 2 },
			encode: func(logical int) (uint16, error) {
				if logical%2 != 0 {
					return 0, apperrors.Newf(apperrors.MalformedDocument,
						"dialect B needs an even item count, got %d", logical)
				}
				if logical/2 > 0xFFFF {
					return 0, apperrors.Newf(apperrors.MalformedDocument,
						"%d items exceed the dialect B limit of %d", logical, 2*0xFFFF)
				}
				return uint16(logical / 2), nil
			},
		},
	},
}

func (d Dialect) String() string {
	if info, ok := dialects[d]; ok {
		return info.name
	}
	return "unknown"
}

// Magic returns the tag written for the dialect.
func (d Dialect) Magic() Magic {
	return dialects[d].magic
}

// Valid reports whether d is a recognized dialect.
func (d Dialect) Valid() bool {
	_, ok := dialects[d]
	return ok
}

// DecodeCount converts a stored count field into the number of records.
func (d Dialect) DecodeCount(raw uint16) int {
	info, ok := dialects[d]
	if !ok {
		return 0
	}
	return info.counts.decode(raw)
}

// EncodeCount converts a number of records into the stored count field.
func (d Dialect) EncodeCount(logical int) (uint16, error) {
	info, ok := dialects[d]
	if !ok {
		return 0, apperrors.Newf(apperrors.UnrecognizedMagic, "no count strategy for dialect %d", d)
	}
	if logical < 0 {
		return 0, apperrors.Newf(apperrors.MalformedDocument, "negative item count %d", logical)
	}
	return info.counts.encode(logical)
}

// DialectOf returns the dialect for a tag, or DialectUnknown.
func DialectOf(m Magic) Dialect {
	for d, info := range dialects {
		if info.magic == m {
			return d
		}
	}
	return DialectUnknown
}

// EncodeDialect picks the output dialect for a table whose original file
// carried tag m. DialectB stays DialectB; anything else, recognized or not,
// becomes DialectA. With strict set, an unrecognized tag is an error instead.
func EncodeDialect(m Magic, strict bool) (Dialect, error) {
	switch DialectOf(m) {
	case DialectB:
		return DialectB, nil
	case DialectA:
		return DialectA, nil
	}
	if strict {
		return DialectUnknown, apperrors.Newf(apperrors.UnrecognizedMagic, "original tag %s", m)
	}
	return DialectA, nil
}

// Header is the fixed-size prefix of an XUS file.
type Header struct {
	Magic    Magic
	Dialect  Dialect
	FileSize uint32 // as stored; only meaningful for files this package wrote
	RawCount uint16 // count field as stored
}

// ItemCount is the number of records the header declares.
func (h *Header) ItemCount() int {
	return h.Dialect.DecodeCount(h.RawCount)
}
