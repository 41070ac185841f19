package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-guild/internal/engine"
)

const rootLong = `Read-only view of the guild data file.

Changes go through the dashboard, which owns the file and sends the matching
notices to the log channel.`

type options struct {
	dataFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "celerix-guild",
		Short:        "Inspect the guild data file",
		Long:         rootLong,
		SilenceUsage: true,
	}

	def := os.Getenv("DATA_FILE")
	if def == "" {
		def = "db.json"
	}
	cmd.PersistentFlags().StringVar(&opts.dataFile, "data", def, "Path to the data file (env DATA_FILE)")

	cmd.AddCommand(
		newAppsCmd(opts),
		newTicketsCmd(opts),
		newShowCmd(opts),
		newSettingsCmd(opts),
	)
	return cmd
}

// openStore opens the data file without creating it. Commands only read from it.
func (o *options) openStore() (*engine.Store, error) {
	if _, err := os.Stat(o.dataFile); err != nil {
		return nil, fmt.Errorf("data file %s: %w", o.dataFile, err)
	}
	p, err := engine.NewPersistence(o.dataFile)
	if err != nil {
		return nil, err
	}
	return engine.NewStore(p, nil), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
