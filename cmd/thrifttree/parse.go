package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kpumuk/twbridge/internal/bridge"
	"github.com/kpumuk/twbridge/internal/dump"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		check bool
		jobs  int
	)
	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Print the syntax tree of each file",
		Long: `Print the syntax tree of each file. A FILE of "-" reads standard input.

Files are parsed concurrently, each with its own parser.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs < 1 {
				return usageError{fmt.Errorf("--jobs must be at least 1, got %d", jobs)}
			}
			return a.parse(cmd.Context(), args, jobs, check)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "exit with status 1 when any file has syntax errors")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "number of files parsed at once")
	return cmd
}

func (a *app) parse(ctx context.Context, paths []string, jobs int, check bool) error {
	sources := make([][]byte, len(paths))
	for i, path := range paths {
		src, err := a.readInput(path)
		if err != nil {
			return err
		}
		sources[i] = src
	}

	f, err := a.newFactory(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close(ctx) }()

	docs := make([]dump.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			s, err := f.NewSession(gctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			n, err := s.Dump(gctx, sources[i], a.dumpOptions())
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			docs[i] = dump.Document{Path: path, Tree: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var broken int
	for _, d := range docs {
		if !d.Tree.Has(bridge.FlagHasError) {
			continue
		}
		broken++
		a.st.logger.WithFields(logrus.Fields{
			"path":   d.Path,
			"errors": countErrors(d.Tree),
		}).Warn("syntax errors")
	}

	if len(docs) == 1 {
		err = dump.Write(a.st.stdout, docs[0].Tree, a.format, a.colorize)
	} else {
		err = dump.WriteDocuments(a.st.stdout, docs, a.format, a.colorize)
	}
	if err != nil {
		return err
	}
	if check && broken > 0 {
		return fmt.Errorf("%w in %d of %d files", errSyntax, broken, len(docs))
	}
	return nil
}

// countErrors counts error and missing nodes kept in the dump.
func countErrors(n *dump.Node) int {
	var count int
	dump.Walk(n, func(node *dump.Node, _ int) {
		if node.Has(bridge.FlagError) || node.Has(bridge.FlagMissing) {
			count++
		}
	})
	return count
}
