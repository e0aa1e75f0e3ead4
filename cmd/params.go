package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
)

// PrintParameters loads path (or nothing, for the defaults) into a fresh
// store and writes the normalized parameters as TOML, followed by the
// device and host settings a session would be opened with.
func PrintParameters(w io.Writer, path string) error {
	store := params.NewStore(params.WithLogger(logging.GetLogger("params")))
	if path != "" {
		if err := store.LoadFile(path); err != nil {
			return err
		}
	}

	snap := store.Snapshot()
	data, err := params.Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	settings := scanner.BuildSettings(snap)
	hostSettings := scanner.BuildHostSettings(snap)
	device := settings.DeviceName
	if device == "" {
		device = "(default)"
	}
	fmt.Fprintf(w, "\n# device:  %s %dx%d filter=%s\n", device, settings.Width, settings.Height, settings.FilterMode)
	fmt.Fprintf(w, "# decode:  every %s after %d frames, try_harder=%t\n", settings.DecodeInterval, settings.MinDelayFrames, settings.TryHarder)
	fmt.Fprintf(w, "# host:    %s [%s]\n", hostSettings, store.QualityName(hostSettings.QualityLevel))
	return nil
}

// CreateParamsCmd creates the params command.
func CreateParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params [file]",
		Short: "Validate a parameters file and print the result",
		Long: `Loads a parameters TOML file into a fresh store and prints the normalized ` +
			`parameters with the settings derived from them. Without a file the defaults are printed. ` +
			`A rejected file prints the validation error and exits non-zero.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return PrintParameters(c.OutOrStdout(), path)
		},
	}
}
