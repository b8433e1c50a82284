package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvass/internal/core"
	"github.com/JonMunkholm/canvass/internal/notify"
)

// resolverFunc opens a resolver for one command run.
type resolverFunc func(ctx context.Context) (*core.Resolver, func(), error)

func dbResolver(root *rootOptions) resolverFunc {
	return func(ctx context.Context) (*core.Resolver, func(), error) {
		store, closeFn, err := openStore(ctx, root.dbURL)
		if err != nil {
			return nil, nil, err
		}
		return core.NewResolver(store, notify.LogPublisher{}), closeFn, nil
	}
}

func newPendingCmd(root *rootOptions) *cobra.Command {
	return newPendingCmdWith(dbResolver(root))
}

func newPendingCmdWith(open resolverFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect and resolve persons waiting on a leader",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "summary",
			Short: "Count pending persons per leader national id",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withResolver(cmd.Context(), open, func(r *core.Resolver) error {
					counts, err := r.Summary(cmd.Context())
					if err != nil {
						return err
					}
					return writeSummary(cmd.OutOrStdout(), counts)
				})
			},
		},
		&cobra.Command{
			Use:   "list LEADER_ID_NUMBER",
			Short: "List persons waiting on a leader national id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withResolver(cmd.Context(), open, func(r *core.Resolver) error {
					persons, err := r.ListPending(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), persons)
				})
			},
		},
		newResolveCmd(open),
		&cobra.Command{
			Use:   "cleanup",
			Short: "Clear pending keys that match no leader",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withResolver(cmd.Context(), open, func(r *core.Resolver) error {
					n, err := r.CleanupOrphans(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "cleared %d orphaned pending references\n", n)
					return nil
				})
			},
		},
	)
	return cmd
}

func newResolveCmd(open resolverFunc) *cobra.Command {
	var (
		leaderID int64
		ids      []int64
	)

	cmd := &cobra.Command{
		Use:   "resolve LEADER_ID_NUMBER",
		Short: "Link persons pending on a national id to a leader",
		Long: `Link persons pending on a national id to the leader with --leader-id.
Without --ids every pending person is linked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), open, func(r *core.Resolver) error {
				res, err := r.Resolve(cmd.Context(), args[0], leaderID, ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "linked %d persons to leader %d\n", res.Affected, leaderID)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&leaderID, "leader-id", 0, "Leader record id (required)")
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "Person ids to link (default: all pending)")
	_ = cmd.MarkFlagRequired("leader-id")
	return cmd
}

func withResolver(ctx context.Context, open resolverFunc, fn func(*core.Resolver) error) error {
	r, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(r)
}

func writeSummary(w io.Writer, counts []core.PendingCount) error {
	if len(counts) == 0 {
		_, err := fmt.Fprintln(w, "no pending persons")
		return err
	}
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "%-12s %d\n", c.LeaderKey, c.Count); err != nil {
			return err
		}
	}
	return nil
}
