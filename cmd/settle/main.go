// Command settle computes a settlement for an event described by CSV or
// JSON files and writes the transfer and summary reports.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tripledger/internal/eventio"
	"tripledger/internal/models"
	"tripledger/internal/service"
	"tripledger/pkg/logging"
)

var (
	peoplePath     string
	activitiesPath string
	eventPath      string
	outDir         string
	logLevel       string
)

func main() {
	root := &cobra.Command{
		Use:   "settle",
		Short: "Compute who pays whom for a shared-expense event",
		Long: `settle reads an event from CSV files (--people and --activities)
or a single JSON export (--event), computes net balances and the minimal
transfer list, and writes transfers.csv and summary.csv to --out-dir.`,
		SilenceUsage: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup("text", logLevel)
		},
		RunE: run,
	}

	root.Flags().StringVar(&peoplePath, "people", "", "CSV file with columns id,name")
	root.Flags().StringVar(&activitiesPath, "activities", "", "CSV file describing the activities")
	root.Flags().StringVar(&eventPath, "event", "", "JSON event export (alternative to the CSV pair)")
	root.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory for transfers.csv and summary.csv")
	root.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.MarkFlagsRequiredTogether("people", "activities")
	root.MarkFlagsMutuallyExclusive("people", "event")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	event, err := loadEvent()
	if err != nil {
		return err
	}

	settlement, err := service.Compute(event)
	if err != nil {
		return fmt.Errorf("compute settlement: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeCSV(filepath.Join(outDir, "transfers.csv"), func(f *os.File) error {
		return eventio.WriteTransfersCSV(f, settlement.Transfers)
	}); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(outDir, "summary.csv"), func(f *os.File) error {
		return eventio.WriteSummaryCSV(f, settlement.Summary)
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d people, %d activities, %d transfers\n",
		len(event.People()), len(event.Activities()), len(settlement.Transfers))
	for _, tr := range settlement.Transfers {
		fmt.Fprintf(cmd.OutOrStdout(), "%s pays %s %s %s\n",
			tr.From.Name, tr.To.Name, tr.Amount.StringFixed(2), event.Currency())
	}
	return nil
}

func loadEvent() (*models.Event, error) {
	switch {
	case eventPath != "":
		f, err := os.Open(eventPath)
		if err != nil {
			return nil, fmt.Errorf("open event file: %w", err)
		}
		defer f.Close()
		return eventio.ReadEventJSON(f)
	case peoplePath != "" && activitiesPath != "":
		people, err := os.Open(peoplePath)
		if err != nil {
			return nil, fmt.Errorf("open people file: %w", err)
		}
		defer people.Close()
		activities, err := os.Open(activitiesPath)
		if err != nil {
			return nil, fmt.Errorf("open activities file: %w", err)
		}
		defer activities.Close()
		return eventio.ReadEventCSV(people, activities)
	default:
		return nil, fmt.Errorf("either --event or both --people and --activities are required")
	}
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
