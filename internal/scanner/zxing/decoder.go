// Package zxing decodes QR, Data Matrix and 1D barcodes with gozxing.
package zxing

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/scanner"
)

// Decoder tries each reader in turn and returns the first hit. It is safe
// for concurrent use; readers are built per call since gozxing readers keep
// state between decodes.
type Decoder struct {
	formats []Format
	logger  *slog.Logger
}

// Format selects a family of readers.
type Format string

// Supported formats.
const (
	FormatQR         Format = "qr"
	FormatDataMatrix Format = "datamatrix"
	FormatOneD       Format = "1d"
)

// DefaultFormats tries QR first, then the 1D readers.
var DefaultFormats = []Format{FormatQR, FormatOneD}

// ParseFormats parses a comma-separated format list such as "qr,1d".
// Blank input yields DefaultFormats.
func ParseFormats(list string) ([]Format, error) {
	var formats []Format
	for _, part := range strings.Split(list, ",") {
		name := Format(strings.ToLower(strings.TrimSpace(part)))
		switch name {
		case "":
			continue
		case FormatQR, FormatDataMatrix, FormatOneD:
			if !slices.Contains(formats, name) {
				formats = append(formats, name)
			}
		default:
			return nil, fmt.Errorf("unknown barcode format %q (want qr, datamatrix or 1d)", part)
		}
	}
	if len(formats) == 0 {
		return slices.Clone(DefaultFormats), nil
	}
	return formats, nil
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithFormats restricts the readers tried, in order.
func WithFormats(formats ...Format) Option {
	return func(d *Decoder) {
		if len(formats) > 0 {
			d.formats = formats
		}
	}
}

// New creates a decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		formats: DefaultFormats,
		logger:  logging.GetLogger("scanner").With("component", "zxing"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode implements scanner.Decoder.
func (d *Decoder) Decode(frame scanner.Frame, hints scanner.Hints) (scanner.Result, bool) {
	if frame.Image == nil {
		return scanner.Result{}, false
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(frame.Image)
	if err != nil {
		d.logger.Debug("Failed to binarize frame", "seq", frame.Seq, "error", err)
		return scanner.Result{}, false
	}

	decodeHints := map[gozxing.DecodeHintType]any{}
	if hints.TryHarder {
		decodeHints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	for _, reader := range d.readers(decodeHints) {
		result, err := reader.Decode(bmp, decodeHints)
		if err != nil {
			var notFound gozxing.NotFoundException
			if !errors.As(err, &notFound) {
				d.logger.Debug("Reader failed", "seq", frame.Seq, "error", err)
			}
			continue
		}
		return scanner.Result{
			Symbology: result.GetBarcodeFormat().String(),
			Value:     result.GetText(),
			FrameSeq:  frame.Seq,
			Timestamp: frame.Timestamp,
		}, true
	}
	return scanner.Result{}, false
}

func (d *Decoder) readers(hints map[gozxing.DecodeHintType]any) []gozxing.Reader {
	var readers []gozxing.Reader
	for _, f := range d.formats {
		switch f {
		case FormatQR:
			readers = append(readers, qrcode.NewQRCodeReader())
		case FormatDataMatrix:
			readers = append(readers, datamatrix.NewDataMatrixReader())
		case FormatOneD:
			readers = append(readers,
				oned.NewMultiFormatUPCEANReader(hints),
				oned.NewCode128Reader(),
				oned.NewCode39Reader(),
				oned.NewCode93Reader(),
				oned.NewITFReader(),
				oned.NewCodaBarReader(),
			)
		}
	}
	return readers
}
