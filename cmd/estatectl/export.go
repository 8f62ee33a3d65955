package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"EstateDesk/internal/audit"
	"EstateDesk/internal/catalog"
	"EstateDesk/internal/cms"
	"EstateDesk/internal/config"
	"EstateDesk/internal/workspace"
)

type exportOptions struct {
	domain  string
	out     string
	selects []string
	search  string
	from    string
	to      string
	limit   int
}

func exportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch a page from the CMS and write it as an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.domain, "page", "property", "Page to export (property, agent, customer, ...)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default <title>-<date>.xlsx)")
	cmd.Flags().StringArrayVar(&opts.selects, "filter", nil, "Filter option as key=value; repeatable")
	cmd.Flags().StringVar(&opts.search, "search", "", "Free-text search")
	cmd.Flags().StringVar(&opts.from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "End date (YYYY-MM-DD), inclusive")
	cmd.Flags().IntVar(&opts.limit, "limit", config.MaxPageSize, "Maximum rows")
	return cmd
}

func runExport(cmd *cobra.Command, opts exportOptions) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	settings := config.Load()
	if len(settings.CMSServers) == 0 {
		return fmt.Errorf("CMS_SERVER is not set")
	}
	cat, err := catalog.Load(settings.FiltersFile)
	if err != nil {
		return err
	}
	layout, ok := cat.Page(opts.domain)
	if !ok {
		return fmt.Errorf("unknown page %q (have %s)", opts.domain, strings.Join(cat.Domains(), ", "))
	}

	client := cms.NewClient(settings.CMSServers, settings.GraphQLURL, settings.UpstreamTimeout)
	page, err := workspace.New("estatectl", layout, workspace.Deps{CMS: client, Audit: audit.LogRecorder{}})
	if err != nil {
		return err
	}

	for _, sel := range opts.selects {
		key, value, found := strings.Cut(sel, "=")
		if !found {
			return fmt.Errorf("--filter %q: want key=value", sel)
		}
		if err := page.Bar().Select(key, value); err != nil {
			return fmt.Errorf("--filter %q: %w", sel, err)
		}
	}
	loc, err := time.LoadLocation(settings.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	if err := setDate(opts.from, loc, page.Bar().SetStartDate); err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if err := setDate(opts.to, loc, page.Bar().SetEndDate); err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	if err := page.SetPage(ctx, 1, opts.limit); err != nil {
		return err
	}
	if opts.search != "" {
		if err := page.Bar().Search(ctx, opts.search); err != nil {
			return err
		}
	}
	if err := page.Bar().Export(ctx); err != nil {
		return err
	}
	wb, err := page.TakeExport()
	if err != nil {
		return err
	}
	out := opts.out
	if out == "" {
		out = wb.FileName
	}
	if err := os.WriteFile(out, wb.Data, 0o644); err != nil {
		return err
	}
	snap := page.Snapshot()
	cmd.Printf("wrote %d rows (of %d) to %s\n", len(snap.Rows), snap.Pagination.TotalRecords, out)
	return nil
}

func setDate(v string, loc *time.Location, set func(*time.Time) (*time.Time, error)) error {
	if v == "" {
		return nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return err
	}
	_, err = set(&t)
	return err
}
