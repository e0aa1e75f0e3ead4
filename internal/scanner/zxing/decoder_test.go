package zxing

import (
	"image"
	"slices"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/smazurov/scannode/internal/scanner"
)

func encodeQR(t *testing.T, content string) image.Image {
	t.Helper()
	img, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	if err != nil {
		t.Fatalf("Failed to encode QR code: %v", err)
	}
	return img
}

func TestDecodeQRCode(t *testing.T) {
	d := New()
	now := time.Now()

	result, ok := d.Decode(scanner.Frame{Image: encodeQR(t, "https://example.com/item/42"), Seq: 7, Timestamp: now}, scanner.Hints{})
	if !ok {
		t.Fatal("Expected QR code to decode")
	}
	if result.Symbology != "QR_CODE" {
		t.Errorf("Expected QR_CODE, got %s", result.Symbology)
	}
	if result.Value != "https://example.com/item/42" {
		t.Errorf("Unexpected value %q", result.Value)
	}
	if result.FrameSeq != 7 || !result.Timestamp.Equal(now) {
		t.Errorf("Frame metadata not carried: %+v", result)
	}
}

func TestDecodeCode128(t *testing.T) {
	img, err := oned.NewCode128Writer().Encode("SCAN-0001", gozxing.BarcodeFormat_CODE_128, 400, 120, nil)
	if err != nil {
		t.Fatalf("Failed to encode barcode: %v", err)
	}

	result, ok := New().Decode(scanner.Frame{Image: img}, scanner.Hints{TryHarder: true})
	if !ok {
		t.Fatal("Expected CODE_128 to decode")
	}
	if result.Symbology != "CODE_128" || result.Value != "SCAN-0001" {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestDecodeBlankFrame(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}

	if _, ok := New().Decode(scanner.Frame{Image: blank}, scanner.Hints{TryHarder: true}); ok {
		t.Error("Expected no result for a blank frame")
	}
	if _, ok := New().Decode(scanner.Frame{}, scanner.Hints{}); ok {
		t.Error("Expected no result for a frame without image")
	}
}

func TestWithFormatsRestrictsReaders(t *testing.T) {
	d := New(WithFormats(FormatDataMatrix))
	if _, ok := d.Decode(scanner.Frame{Image: encodeQR(t, "qr only")}, scanner.Hints{}); ok {
		t.Error("Expected Data Matrix decoder to ignore a QR code")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []Format
		wantErr bool
	}{
		{"", DefaultFormats, false},
		{"qr", []Format{FormatQR}, false},
		{" 1D , QR ,qr", []Format{FormatOneD, FormatQR}, false},
		{"datamatrix,", []Format{FormatDataMatrix}, false},
		{"aztec", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormats(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseFormats(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
