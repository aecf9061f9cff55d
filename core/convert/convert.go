// Package convert runs file-level conversions between XUS tables and XML
// documents.
//
// Each call is self-contained: it reads one input, writes one output through
// a temp file and rename, and returns a Result describing what was written.
// Nothing is written when the conversion fails.
package convert

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
	"github.com/FocuswithJustin/xus2xml/core/xml"
	"github.com/FocuswithJustin/xus2xml/core/xus"
	"github.com/FocuswithJustin/xus2xml/internal/fileutil"
	"github.com/FocuswithJustin/xus2xml/internal/logging"
	"github.com/FocuswithJustin/xus2xml/internal/validation"
)

// EncodedSuffix is appended to the base name of encode outputs so the
// original table is never overwritten by default.
const EncodedSuffix = "_novo"

// outputPerm is the mode of files this package writes.
const outputPerm = 0644

// Direction names a conversion direction in results and logs.
type Direction string

const (
	Decode Direction = "decode"
	Encode Direction = "encode"
)

// Result describes a finished conversion.
type Result struct {
	ID        string
	Direction Direction
	Source    string
	Original  string // reference binary; encode only
	Output    string
	Dialect   xus.Dialect
	Items     int
	Size      int64
	BLAKE3    string
}

// EncodeOptions controls XMLToXUS.
type EncodeOptions struct {
	// Original is the reference binary. Empty means the document's sibling
	// with the .xus extension.
	Original string
	// Output is the destination. Empty means DefaultXUSPath(src).
	Output string
	// Strict rejects an original whose tag is not a recognized dialect
	// instead of normalizing it to DialectA.
	Strict bool
}

// DefaultXMLPath is where XUSToXML writes when no output is given.
func DefaultXMLPath(src string) string {
	return fileutil.ReplaceExt(src, xml.Extension)
}

// DefaultXUSPath is where XMLToXUS writes when no output is given.
func DefaultXUSPath(src string) string {
	return fileutil.SuffixedPath(src, EncodedSuffix, xus.Extension)
}

// OriginalPath is the binary a document is assumed to come from.
func OriginalPath(src string) string {
	return fileutil.ReplaceExt(src, xus.Extension)
}

// newContext tags ctx with a fresh conversion ID unless it carries one.
func newContext(ctx context.Context) (context.Context, string) {
	if id := logging.GetConversionID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return logging.WithConversionID(ctx, id), id
}

// XUSToXML decodes the table at src and writes its document to dst. An
// empty dst means DefaultXMLPath(src).
func XUSToXML(ctx context.Context, src, dst string) (*Result, error) {
	if dst == "" {
		dst = DefaultXMLPath(src)
	}
	ctx, id := newContext(ctx)
	start := time.Now()
	logging.ConversionStart(ctx, string(Decode), src, dst)

	res, err := xusToXML(ctx, src, dst)
	if err != nil {
		logging.ConversionFailed(ctx, string(Decode), src, err)
		return nil, err
	}
	res.ID = id
	logging.ConversionDone(ctx, string(Decode), dst, res.Items, time.Since(start),
		"dialect", res.Dialect.String(), "blake3", res.BLAKE3)
	return res, nil
}

func xusToXML(ctx context.Context, src, dst string) (*Result, error) {
	if err := checkPaths(src, dst); err != nil {
		return nil, err
	}

	table, err := DecodeFile(src)
	if err != nil {
		return nil, err
	}
	if table.Trailing > 0 {
		logging.DebugContext(ctx, "ignoring bytes after last record", "src", src, "bytes", table.Trailing)
	}

	if err := xml.CheckTexts(table.Items); err != nil {
		return nil, apperrors.WithPath(err, src)
	}
	data := xml.NewDocument(table.Items).Render()
	if err := fileutil.WriteFileAtomic(dst, data, outputPerm); err != nil {
		return nil, apperrors.NewIO("write", dst, err)
	}

	return &Result{
		Direction: Decode,
		Source:    src,
		Output:    dst,
		Dialect:   table.Header.Dialect,
		Items:     len(table.Items),
		Size:      int64(len(data)),
		BLAKE3:    digest(data),
	}, nil
}

// XMLToXUS encodes the document at src into a new table. The dialect comes
// from the original binary's tag.
func XMLToXUS(ctx context.Context, src string, opts EncodeOptions) (*Result, error) {
	if opts.Original == "" {
		opts.Original = OriginalPath(src)
	}
	if opts.Output == "" {
		opts.Output = DefaultXUSPath(src)
	}
	ctx, id := newContext(ctx)
	start := time.Now()
	logging.ConversionStart(ctx, string(Encode), src, opts.Output, "original", opts.Original)

	res, err := xmlToXUS(ctx, src, opts)
	if err != nil {
		logging.ConversionFailed(ctx, string(Encode), src, err)
		return nil, err
	}
	res.ID = id
	logging.ConversionDone(ctx, string(Encode), opts.Output, res.Items, time.Since(start),
		"dialect", res.Dialect.String(), "blake3", res.BLAKE3)
	return res, nil
}

func xmlToXUS(ctx context.Context, src string, opts EncodeOptions) (*Result, error) {
	if err := checkPaths(src, opts.Output, opts.Original); err != nil {
		return nil, err
	}

	magic, err := ReadOriginalMagic(opts.Original)
	if err != nil {
		return nil, err
	}
	dialect, err := xus.EncodeDialect(magic, opts.Strict)
	if err != nil {
		return nil, apperrors.WithPath(err, opts.Original)
	}
	if xus.DialectOf(magic) == xus.DialectUnknown {
		logging.WarnContext(ctx, "original has an unrecognized tag; writing dialect A",
			"original", opts.Original, "magic", magic.String())
	}

	doc, err := ReadDocument(src)
	if err != nil {
		return nil, err
	}
	if misnamed := doc.MisnamedItems(); len(misnamed) > 0 {
		logging.DebugContext(ctx, "items taken by position despite their names",
			"src", src, "positions", misnamed)
	}

	data, err := xus.Encode(dialect, doc.Texts())
	if err != nil {
		return nil, apperrors.WithPath(err, src)
	}
	if err := fileutil.WriteFileAtomic(opts.Output, data, outputPerm); err != nil {
		return nil, apperrors.NewIO("write", opts.Output, err)
	}

	return &Result{
		Direction: Encode,
		Source:    src,
		Original:  opts.Original,
		Output:    opts.Output,
		Dialect:   dialect,
		Items:     len(doc.Items),
		Size:      int64(len(data)),
		BLAKE3:    digest(data),
	}, nil
}

// checkPaths validates every path and refuses an output that would replace
// its own input.
func checkPaths(src, dst string, others ...string) error {
	for _, p := range append([]string{src, dst}, others...) {
		if err := validation.ValidatePath(p); err != nil {
			return apperrors.NewIO("open", p, err)
		}
	}
	if filepath.Clean(src) == filepath.Clean(dst) {
		return apperrors.NewIO("write", dst, errors.New("output would overwrite the input"))
	}
	return nil
}

// DecodeFile decodes the table stored at path.
func DecodeFile(path string) (*xus.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	defer f.Close()

	table, err := xus.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, withPath(err, path)
	}
	return table, nil
}

// ReadDocument reads and parses the XML document at path. A file whose
// content is an XUS table is rejected up front.
func ReadDocument(path string) (*xml.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIO("read", path, err)
	}
	if ft, _ := validation.ValidateFileType(bytes.NewReader(data), path); ft == validation.FileTypeXUS {
		return nil, &apperrors.FormatError{
			Kind:    apperrors.MalformedDocument,
			Path:    path,
			Message: "file is an XUS table, not a document",
		}
	}

	doc, err := xml.Parse(data)
	if err != nil {
		return nil, apperrors.WithPath(err, path)
	}
	return doc, nil
}

// ReadOriginalMagic reads only the tag of the reference binary.
func ReadOriginalMagic(path string) (xus.Magic, error) {
	f, err := os.Open(path)
	if err != nil {
		return xus.Magic{}, &apperrors.FormatError{Kind: apperrors.MissingOriginal, Path: path, Err: err}
	}
	defer f.Close()

	magic, err := xus.ReadMagic(f)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return magic, &apperrors.FormatError{
				Kind:    apperrors.MissingOriginal,
				Path:    path,
				Message: fmt.Sprintf("shorter than %d bytes", xus.MagicSize),
			}
		}
		return magic, &apperrors.FormatError{Kind: apperrors.MissingOriginal, Path: path, Err: err}
	}
	return magic, nil
}

// withPath attaches path to format errors and I/O errors that lack one.
func withPath(err error, path string) error {
	var ioErr *apperrors.IOError
	if errors.As(err, &ioErr) && ioErr.Path == "" {
		return apperrors.NewIO(ioErr.Operation, path, ioErr.Err)
	}
	return apperrors.WithPath(err, path)
}

// digest returns the hex BLAKE3-256 of data.
func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
