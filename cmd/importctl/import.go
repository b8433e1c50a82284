package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvass/internal/core"
	"github.com/JonMunkholm/canvass/internal/notify"
	"github.com/JonMunkholm/canvass/internal/store/memstore"
)

// readFile ingests path, guessing the format from its extension.
func readFile(path string) (*core.Preview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return core.Ingest(data, "", filepath.Base(path))
}

func parseEntityFlag(s string) (core.EntityType, error) {
	if s == "" {
		return "", nil
	}
	return core.ParseEntityType(s)
}

func newPreviewCmd() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show headers, detected format and sample rows of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readFile(args[0])
			if err != nil {
				return err
			}
			p.Resample(rows)
			return writePreview(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 5, "Number of sample rows to show")
	return cmd
}

func writePreview(w io.Writer, p *core.Preview) error {
	fmt.Fprintf(w, "format:    %s\n", p.Format)
	if p.Encoding != "" {
		fmt.Fprintf(w, "encoding:  %s\n", p.Encoding)
	}
	if p.Delimiter != "" {
		fmt.Fprintf(w, "delimiter: %q\n", p.Delimiter)
	}
	if p.Sheet != "" {
		fmt.Fprintf(w, "sheet:     %s\n", p.Sheet)
	}
	fmt.Fprintf(w, "rows:      %d\n", p.TotalRows)
	fmt.Fprintf(w, "headers:   %s\n", strings.Join(p.Headers, " | "))

	for i, row := range p.SampleRows {
		cells := make([]string, len(p.Headers))
		for j, h := range p.Headers {
			cells[j] = row[h]
		}
		fmt.Fprintf(w, "%4d  %s\n", i+1, strings.Join(cells, " | "))
	}
	for _, e := range p.Errors {
		fmt.Fprintf(w, "error:   %s\n", e)
	}
	for _, warn := range p.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}

func newSuggestCmd() *cobra.Command {
	var entityName string

	cmd := &cobra.Command{
		Use:   "suggest FILE",
		Short: "Print a suggested mapping file for FILE's headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := core.ParseEntityType(entityName)
			if err != nil {
				return err
			}
			p, err := readFile(args[0])
			if err != nil {
				return err
			}
			return writeMapping(cmd.OutOrStdout(), entity, p.Headers, core.SuggestMapping(p.Headers, entity))
		},
	}

	cmd.Flags().StringVar(&entityName, "entity", "", "Target entity: person, leader, candidate, group (required)")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

type importOptions struct {
	entity      string
	mappingPath string
	dryRun      bool
	timeout     time.Duration
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import FILE as one batch",
		Long: `Import FILE as one batch. Without --mapping the suggested mapping is used.

--dry-run runs the batch against an empty in-memory store, so every leader
reference shows up as pending and nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.entity, "entity", "", "Target entity (optional when the mapping file names one)")
	cmd.Flags().StringVar(&opts.mappingPath, "mapping", "", "YAML mapping file from 'importctl suggest'")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and run against an in-memory store")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Abort the batch after this long")
	return cmd
}

func runImport(ctx context.Context, w io.Writer, root *rootOptions, opts importOptions, path string) error {
	entity, err := parseEntityFlag(opts.entity)
	if err != nil {
		return err
	}

	p, err := readFile(path)
	if err != nil {
		return err
	}
	if len(p.Rows) == 0 {
		return core.ErrEmptyBatch
	}

	var mapping core.FieldMapping
	if opts.mappingPath != "" {
		if entity, mapping, err = loadMapping(opts.mappingPath, entity); err != nil {
			return err
		}
	} else {
		if entity == "" {
			return fmt.Errorf("--entity is required without --mapping")
		}
		mapping = core.SuggestMapping(p.Headers, entity)
	}

	var store core.Store
	if opts.dryRun {
		store = memstore.New()
	} else {
		pg, closeFn, err := openStore(ctx, root.dbURL)
		if err != nil {
			return err
		}
		defer closeFn()
		store = pg
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	ctx = core.WithCaller(ctx, core.Caller{UserAgent: "importctl"})

	resolver := core.NewResolver(store, notify.LogPublisher{})
	importer := core.NewImporter(store, resolver, core.NewImportLimiter(1, time.Minute))

	res, err := importer.Import(ctx, core.ImportRequest{
		Entity:   entity,
		Mapping:  mapping,
		Rows:     p.Rows,
		FileName: filepath.Base(path),
	})
	if err != nil {
		return err
	}
	return printJSON(w, res)
}
