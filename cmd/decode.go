package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/scanner/imagefile"
)

// DecodeFiles decodes each image and writes one line per file. It returns
// the number of files in which a code was found.
func DecodeFiles(w io.Writer, dec scanner.Decoder, hints scanner.Hints, files []string) int {
	found := 0
	for i, path := range files {
		img, err := imagefile.Load(path)
		if err != nil {
			fmt.Fprintf(w, "%s: error: %v\n", path, err)
			continue
		}

		frame := scanner.Frame{Image: img, Seq: uint64(i + 1), Timestamp: time.Now()}
		result, ok := dec.Decode(frame, hints)
		if !ok {
			fmt.Fprintf(w, "%s: no code found\n", path)
			continue
		}
		found++
		fmt.Fprintf(w, "%s: Found: %s / %s\n", path, result.Symbology, result.Value)
	}
	return found
}

// CreateDecodeCmd creates the decode command.
func CreateDecodeCmd() *cobra.Command {
	var formats string
	var tryHarder bool

	cmd := &cobra.Command{
		Use:          "decode <files...>",
		Short:        "Decode barcodes in still images",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			dec, err := NewDecoder(formats)
			if err != nil {
				return err
			}
			found := DecodeFiles(c.OutOrStdout(), dec, scanner.Hints{TryHarder: tryHarder}, args)
			if found == 0 {
				return fmt.Errorf("no code found in %d file(s)", len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formats, "formats", "qr,1d", "Barcode formats to try (qr, datamatrix, 1d)")
	cmd.Flags().BoolVar(&tryHarder, "try-harder", true, "Spend more time per image")

	return cmd
}
