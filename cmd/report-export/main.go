// report-export opens one report the way the console does, applies a search
// and sort, and writes every matching row as TSV, XLSX or PDF.
//
// Usage:
//
//	UPSTREAM_BASE_URL=https://api.example.com go run ./cmd/report-export \
//	  --report sales --param from=2024-04-01 --param to=2024-06-30 \
//	  --token "$TOKEN" --sort amount --dir desc --format xlsx --out sales.xlsx
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mmdatafocus/estate_console/backend"
	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/models/reports"
	"github.com/mmdatafocus/estate_console/utils"
	"github.com/mmdatafocus/estate_console/views"
	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "report-export",
	Short: "Export a console report to a file or the clipboard",
	RunE:  run,
}

var args struct {
	report    string
	params    map[string]string
	token     string
	baseURL   string
	search    string
	filters   map[string]string
	sort      string
	dir       string
	format    string
	out       string
	clipboard bool
	timeout   time.Duration
}

func init() {
	f := Cmd.Flags()
	f.StringVar(&args.report, "report", "", "report name ("+strings.Join(reports.ReportNames(), ", ")+")")
	f.StringToStringVar(&args.params, "param", nil, "report parameter, repeatable (key=value)")
	f.StringVar(&args.token, "token", os.Getenv("CONSOLE_TOKEN"), "bearer token for the backend")
	f.StringVar(&args.baseURL, "base-url", "", "backend base URL (default UPSTREAM_BASE_URL)")
	f.StringVar(&args.search, "search", "", "global search term")
	f.StringToStringVar(&args.filters, "filter", nil, "column filter, repeatable (column=text)")
	f.StringVar(&args.sort, "sort", "", "sort column")
	f.StringVar(&args.dir, "dir", "asc", "sort direction: asc or desc")
	f.StringVar(&args.format, "format", "tsv", "tsv, xlsx or pdf")
	f.StringVarP(&args.out, "out", "o", "", "output file (default derived from the report title)")
	f.BoolVar(&args.clipboard, "clipboard", false, "copy the TSV to the clipboard instead of writing a file")
	f.DurationVar(&args.timeout, "timeout", 2*time.Minute, "overall timeout")
	_ = Cmd.MarkFlagRequired("report")
}

func main() {
	log.SetFlags(log.Flags() | log.Lshortfile)

	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, argv []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), args.timeout)
	defer cancel()
	if args.token != "" {
		ctx = utils.SetTokenInContext(ctx, args.token)
	}

	baseURL := args.baseURL
	if baseURL == "" {
		baseURL = config.UpstreamBaseURL()
	}
	client := backend.New(baseURL, config.UpstreamTimeout())
	registry := views.NewRegistry(client, config.ViewTTL())

	s, err := registry.Open(ctx, views.OpenRequest{Report: args.report, Params: args.params})
	if err != nil {
		return fmt.Errorf("open %s: %s", args.report, views.UserMessage(err))
	}
	q := views.Query{Search: &args.search, Columns: args.filters}
	if args.sort != "" {
		q.Sort = &args.sort
		q.Direction = args.dir
	}
	if _, err := registry.Query(ctx, s, q); err != nil {
		return errors.New(views.UserMessage(err))
	}
	table := registry.Export(s)

	if args.clipboard {
		text, err := reports.ExportClipboard(table)
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("clipboard: %w", err)
		}
		log.Printf("copied %d rows of %s to the clipboard", len(table.Rows), table.Title)
		return nil
	}

	var data []byte
	switch strings.ToLower(args.format) {
	case "tsv":
		var text string
		text, err = reports.ExportClipboard(table)
		data = []byte(text)
	case "xlsx":
		data, err = reports.ExportExcel(table)
	case "pdf":
		data, err = reports.ExportPDF(ctx, table)
	default:
		return fmt.Errorf("unknown format %q", args.format)
	}
	if errors.Is(err, reports.ErrNothingToExport) {
		log.Printf("%s: no rows match, nothing written", table.Title)
		return nil
	}
	if err != nil {
		return err
	}

	out := args.out
	if out == "" {
		out = table.Filename(strings.ToLower(args.format))
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %d rows to %s", len(table.Rows), out)
	return nil
}
