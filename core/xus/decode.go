package xus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
)

// Table is a decoded XUS file: its header and the record texts in file order.
type Table struct {
	Header Header
	Items  []string
	// Trailing counts bytes after the last declared record. They are not
	// part of the table and are dropped on re-encode.
	Trailing int64
}

// ReadMagic reads the 6-byte tag from r.
func ReadMagic(r io.Reader) (Magic, error) {
	var m Magic
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return m, err
	}
	return m, nil
}

// ReadHeader reads and validates the 12-byte header.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte

	n, err := io.ReadFull(r, buf[:MagicSize])
	if err != nil {
		if isShortRead(err) {
			return nil, apperrors.Newf(apperrors.UnrecognizedMagic, "file holds only %d bytes", n)
		}
		return nil, apperrors.NewIO("read", "", err)
	}

	h := &Header{}
	copy(h.Magic[:], buf[:MagicSize])
	h.Dialect = DialectOf(h.Magic)
	if h.Dialect == DialectUnknown {
		return nil, apperrors.Newf(apperrors.UnrecognizedMagic, "tag %s", h.Magic)
	}

	if _, err := io.ReadFull(r, buf[MagicSize:]); err != nil {
		if isShortRead(err) {
			return nil, apperrors.New(apperrors.TruncatedRecord, "header shorter than 12 bytes")
		}
		return nil, apperrors.NewIO("read", "", err)
	}
	h.FileSize = binary.BigEndian.Uint32(buf[SizeOffset:CountOffset])
	h.RawCount = binary.BigEndian.Uint16(buf[CountOffset:HeaderSize])
	return h, nil
}

// Decode reads a complete XUS table from r.
func Decode(r io.Reader) (*Table, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	count := h.ItemCount()
	t := &Table{Header: *h, Items: make([]string, 0, count)}

	var lenBuf [2]byte
	for i := 1; i <= count; i++ {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, recordError(err, i, "length prefix missing")
		}
		units := int(binary.BigEndian.Uint16(lenBuf[:]))

		body := make([]byte, units*2)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, recordError(err, i, fmt.Sprintf("declares %d code units", units))
		}

		text, err := decodeText(body)
		if err != nil {
			return nil, apperrors.Annotate(err, fmt.Sprintf("item %d", i))
		}
		t.Items = append(t.Items, text)
	}

	trailing, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, apperrors.NewIO("read", "", err)
	}
	t.Trailing = trailing
	return t, nil
}

func recordError(err error, item int, detail string) error {
	if isShortRead(err) {
		return apperrors.Newf(apperrors.TruncatedRecord, "item %d %s", item, detail)
	}
	return apperrors.NewIO("read", "", err)
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
