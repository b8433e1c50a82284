package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvass/internal/core"
)

// importerFunc opens an importer for one command run.
type importerFunc func(ctx context.Context) (*core.Importer, func(), error)

func dbImporter(root *rootOptions) importerFunc {
	return func(ctx context.Context) (*core.Importer, func(), error) {
		store, closeFn, err := openStore(ctx, root.dbURL)
		if err != nil {
			return nil, nil, err
		}
		return core.NewImporter(store, nil, nil), closeFn, nil
	}
}

func newJournalCmd(root *rootOptions) *cobra.Command {
	return newJournalCmdWith(dbImporter(root))
}

func newJournalCmdWith(open importerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show or prune the record of committed imports",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withImporter(cmd.Context(), open, func(im *core.Importer) error {
				batches, err := im.RecentBatches(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return writeBatches(cmd.OutOrStdout(), batches)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Number of batches to show")

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete batches older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withImporter(cmd.Context(), open, func(im *core.Importer) error {
				n, err := im.PruneJournal(cmd.Context(), time.Now().Add(-olderThan), 0)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d journal entries\n", n)
				return nil
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Minimum age of deleted entries")

	cmd.AddCommand(list, prune)
	return cmd
}

func withImporter(ctx context.Context, open importerFunc, fn func(*core.Importer) error) error {
	im, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(im)
}

func writeBatches(w io.Writer, batches []core.BatchRecord) error {
	if len(batches) == 0 {
		_, err := fmt.Fprintln(w, "no imports recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tENTITY\tFILE\tROWS\tOK\tERRORS\tPENDING")
	for _, b := range batches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			b.CreatedAt.Format(time.DateTime), b.Entity, b.FileName,
			b.TotalRows, b.SuccessCount, b.ErrorCount, b.Pending)
	}
	return tw.Flush()
}
