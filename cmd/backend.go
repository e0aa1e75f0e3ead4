// Package cmd holds the scannode subcommands and the capture backend
// selection they share with the server.
package cmd

import (
	"fmt"
	"strings"

	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/scanner/imagefile"
	"github.com/smazurov/scannode/internal/scanner/webcam"
	"github.com/smazurov/scannode/internal/scanner/zxing"
)

// Capture backends.
const (
	BackendWebcam    = "webcam"
	BackendImageFile = "imagefile"
)

// BackendOptions selects and configures a capture backend.
type BackendOptions struct {
	Backend  string
	ImageDir string
	Mirror   bool
	// KeepSize serves images at their original size instead of the
	// requested resolution.
	KeepSize bool
}

// NewDevice builds the capture device named by opts.Backend.
func NewDevice(opts BackendOptions) (scanner.Device, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendWebcam, "":
		return webcam.New(webcam.WithMirror(opts.Mirror)), nil
	case BackendImageFile:
		fileOpts := []imagefile.Option{imagefile.WithDirectory(opts.ImageDir)}
		if opts.KeepSize {
			fileOpts = append(fileOpts, imagefile.WithOriginalSize())
		}
		return imagefile.New(fileOpts...), nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q (want %s or %s)", opts.Backend, BackendWebcam, BackendImageFile)
	}
}

// NewDecoder builds a zxing decoder for a comma-separated format list.
func NewDecoder(formats string) (*zxing.Decoder, error) {
	parsed, err := zxing.ParseFormats(formats)
	if err != nil {
		return nil, err
	}
	return zxing.New(zxing.WithFormats(parsed...)), nil
}
