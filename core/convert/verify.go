package convert

import (
	"bytes"
	"context"
	"os"

	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
	"github.com/FocuswithJustin/xus2xml/core/xml"
	"github.com/FocuswithJustin/xus2xml/core/xus"
	"github.com/FocuswithJustin/xus2xml/internal/logging"
)

// Info summarizes a table's header against the file it came from.
type Info struct {
	Path       string
	Header     xus.Header
	Items      int   // records the header declares
	ActualSize int64 // bytes on disk
}

// SizeFieldOK reports whether the stored size matches the file length.
func (i *Info) SizeFieldOK() bool {
	return int64(i.Header.FileSize) == i.ActualSize
}

// Inspect reads only the header of the table at path.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, apperrors.NewIO("stat", path, err)
	}
	h, err := xus.ReadHeader(f)
	if err != nil {
		return nil, withPath(err, path)
	}
	return &Info{
		Path:       path,
		Header:     *h,
		Items:      h.ItemCount(),
		ActualSize: st.Size(),
	}, nil
}

// VerifyResult reports whether a table survives decode, render, parse and
// encode unchanged.
type VerifyResult struct {
	Info
	// RoundTrip is true when the re-encoded bytes equal the source, size
	// field and trailing bytes excluded.
	RoundTrip bool
	// FirstDiff is the offset of the first differing byte, or -1.
	FirstDiff int
	// Problem explains a failed round trip that did not come from a byte
	// mismatch, such as text the document format cannot carry.
	Problem  string
	Trailing int64
}

// Verify runs the table at path through a full in-memory round trip against
// its own tag. Decode errors are returned; round-trip failures are reported
// in the result.
func Verify(ctx context.Context, path string) (*VerifyResult, error) {
	ctx, _ = newContext(ctx)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIO("read", path, err)
	}
	table, err := xus.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, withPath(err, path)
	}

	res := &VerifyResult{
		Info: Info{
			Path:       path,
			Header:     table.Header,
			Items:      len(table.Items),
			ActualSize: int64(len(src)),
		},
		FirstDiff: -1,
		Trailing:  table.Trailing,
	}

	if err := xml.CheckTexts(table.Items); err != nil {
		res.Problem = err.Error()
		return res, nil
	}
	doc, err := xml.Parse(xml.NewDocument(table.Items).Render())
	if err != nil {
		res.Problem = err.Error()
		logging.WarnContext(ctx, "document does not parse back", "src", path, "error", err.Error())
		return res, nil
	}
	out, err := xus.Encode(table.Header.Dialect, doc.Texts())
	if err != nil {
		res.Problem = err.Error()
		return res, nil
	}

	body := src[:int64(len(src))-table.Trailing]
	res.FirstDiff = firstDiff(body, out)
	res.RoundTrip = res.FirstDiff < 0
	logging.DebugContext(ctx, "verified", "src", path, "round_trip", res.RoundTrip, "first_diff", res.FirstDiff)
	return res, nil
}

// firstDiff compares two encoded tables, skipping the size field.
func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if i >= xus.SizeOffset && i < xus.CountOffset {
			continue
		}
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
