package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/tracker/handler"
	"mipwatch/internal/tracker/service"
	pstrings "mipwatch/pkg/platform/strings"
)

func (c *cli) ingestCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store a snapshot and show what changed since the previous date",
		Long: `Store a snapshot file, replacing anything already stored for its date.

The file uses the POST /snapshots body:
  {"publish_date": "10/9/2024", "not_displayed": 3,
   "rows": [{"name": "...", "vendor": "...", "standard": "FIPS 140-3", "status": "In Review"}]}

Use --file - to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireDatabase(); err != nil {
				return err
			}
			req, err := readSnapshotFile(cmd, file)
			if err != nil {
				return err
			}
			result, err := c.app.Service.Ingest(cmd.Context(), req.Snapshot())
			if err != nil {
				return err
			}
			p := newPrinter(c.out)
			p.ingest(result)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Snapshot JSON file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readSnapshotFile(cmd *cobra.Command, path string) (*handler.IngestRequest, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot file: %w", err)
		}
		defer f.Close()
		r = f
	}
	var req handler.IngestRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *cli) changesCmd() *cobra.Command {
	var date string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Diff a publish date against the date before it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var at time.Time
			if date != "" {
				parsed, err := models.ParsePublishDate(date)
				if err != nil {
					return err
				}
				at = parsed
			}
			changes, err := c.app.Service.Changes(cmd.Context(), at)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, changes)
			}
			newPrinter(c.out).changes(*changes)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Publish date, M/D/YYYY or YYYY-MM-DD (default latest)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	var (
		opts   service.ReportOptions
		roster string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the latest snapshot and its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RosterStatuses = pstrings.SplitList(roster)
			report, err := c.app.Service.Report(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, report)
			}
			newPrinter(c.out).report(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.AllDates, "all", false, "Tally every stored date instead of the window")
	cmd.Flags().IntVar(&opts.WindowMonths, "window", 0, "Tally window in months (default from config)")
	cmd.Flags().IntVar(&opts.TopVendors, "vendors", 0, "Number of vendors to rank (default from config)")
	cmd.Flags().StringVar(&roster, "roster", "", "Comma separated statuses to list with time in status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var key models.EntityKey
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show one module's status over time",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.app.Service.History(cmd.Context(), key)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, h)
			}
			newPrinter(c.out).history(h)
			return nil
		},
	}
	cmd.Flags().StringVar(&key.Name, "name", "", "Module name (required)")
	cmd.Flags().StringVar(&key.Vendor, "vendor", "", "Vendor name")
	cmd.Flags().StringVar(&key.Standard, "standard", "", "Standard, e.g. FIPS 140-3")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) disappearancesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "disappearances",
		Short: "List modules that left the list without finishing",
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := c.app.Service.Disappearances(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, found)
			}
			newPrinter(c.out).disappearances(found)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (c *cli) mergeCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Copy snapshots missing here from another database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireDatabase(); err != nil {
				return err
			}
			secondary, closeSecondary, err := openSecondary(cmd.Context(), from)
			if err != nil {
				return err
			}
			defer closeSecondary()

			copied, err := c.app.Service.Merge(cmd.Context(), secondary)
			if err != nil {
				return err
			}
			newPrinter(c.out).merged(copied)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "PostgreSQL connection string of the source database (required)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
