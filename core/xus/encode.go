package xus

import (
	"bytes"
	"encoding/binary"
	"strconv"

	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
)

// Encode serializes items as an XUS file in dialect d. The size field is
// filled in after the records are written.
func Encode(d Dialect, items []string) ([]byte, error) {
	if !d.Valid() {
		return nil, apperrors.Newf(apperrors.UnrecognizedMagic, "cannot encode dialect %d", d)
	}
	rawCount, err := d.EncodeCount(len(items))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	magic := d.Magic()
	buf.Write(magic[:])

	// Size placeholder, patched below.
	buf.Write(make([]byte, CountOffset-SizeOffset))
	binary.Write(&buf, binary.BigEndian, rawCount)

	for i, text := range items {
		body, units, err := encodeText(text)
		if err != nil {
			return nil, apperrors.Annotate(err, "item "+strconv.Itoa(i+1))
		}
		binary.Write(&buf, binary.BigEndian, units)
		buf.Write(body)
	}

	out := buf.Bytes()
	if uint64(len(out)) > 0xFFFFFFFF {
		return nil, apperrors.Newf(apperrors.MalformedDocument, "encoded size %d overflows the size field", len(out))
	}
	binary.BigEndian.PutUint32(out[SizeOffset:CountOffset], uint32(len(out)))
	return out, nil
}
