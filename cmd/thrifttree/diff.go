package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kpumuk/twbridge/internal/bridge"
	"github.com/kpumuk/twbridge/internal/dump"
	"github.com/kpumuk/twbridge/internal/engine"
)

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Re-parse NEW incrementally from OLD and print the changed ranges",
		Long: `Parse OLD, describe the change to NEW as a single edit, apply it to the tree, re-parse
NEW incrementally, and print the ranges whose syntax changed.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.diff(cmd.Context(), args[0], args[1])
		},
	}
}

type pointReport struct {
	Row    uint32 `json:"row" yaml:"row"`
	Column uint32 `json:"column" yaml:"column"`
}

type editReport struct {
	StartByte   uint32      `json:"start_byte" yaml:"start_byte"`
	OldEndByte  uint32      `json:"old_end_byte" yaml:"old_end_byte"`
	NewEndByte  uint32      `json:"new_end_byte" yaml:"new_end_byte"`
	StartPoint  pointReport `json:"start_point" yaml:"start_point"`
	OldEndPoint pointReport `json:"old_end_point" yaml:"old_end_point"`
	NewEndPoint pointReport `json:"new_end_point" yaml:"new_end_point"`
}

type rangeReport struct {
	StartByte  uint32      `json:"start_byte" yaml:"start_byte"`
	EndByte    uint32      `json:"end_byte" yaml:"end_byte"`
	StartPoint pointReport `json:"start_point" yaml:"start_point"`
	EndPoint   pointReport `json:"end_point" yaml:"end_point"`
}

type diffReport struct {
	Engine   string        `json:"engine" yaml:"engine"`
	Edit     editReport    `json:"edit" yaml:"edit"`
	Ranges   []rangeReport `json:"changed_ranges" yaml:"changed_ranges"`
	HasError bool          `json:"has_error" yaml:"has_error"`
}

func (a *app) diff(ctx context.Context, oldPath, newPath string) error {
	prev, err := a.readInput(oldPath)
	if err != nil {
		return err
	}
	next, err := a.readInput(newPath)
	if err != nil {
		return err
	}

	f, err := a.newFactory(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close(ctx) }()

	s, err := f.NewSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res, err := s.Diff(ctx, prev, next)
	if err != nil {
		return fmt.Errorf("diff %s %s: %w", oldPath, newPath, err)
	}
	return writeDiff(a.st.stdout, newDiffReport(f.Name(), res), a.format)
}

func newDiffReport(engineName string, res engine.DiffResult) diffReport {
	e := res.Edit
	r := diffReport{
		Engine: engineName,
		Edit: editReport{
			StartByte:   e.StartByte,
			OldEndByte:  e.OldEndByte,
			NewEndByte:  e.NewEndByte,
			StartPoint:  pointOf(e.StartPoint),
			OldEndPoint: pointOf(e.OldEndPoint),
			NewEndPoint: pointOf(e.NewEndPoint),
		},
		Ranges:   make([]rangeReport, 0, len(res.Ranges)),
		HasError: res.HasError,
	}
	for _, cr := range res.Ranges {
		r.Ranges = append(r.Ranges, rangeReport{
			StartByte:  cr.StartByte,
			EndByte:    cr.EndByte,
			StartPoint: pointOf(cr.StartPoint),
			EndPoint:   pointOf(cr.EndPoint),
		})
	}
	return r
}

func pointOf(p bridge.Point) pointReport {
	return pointReport{Row: p.Row, Column: p.Column}
}

func writeDiff(w io.Writer, r diffReport, f dump.Format) error {
	switch f {
	case dump.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case dump.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	e := r.Edit
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	printf("edit: [%d,%d) -> [%d,%d) at %d:%d, old end %d:%d, new end %d:%d\n",
		e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte,
		e.StartPoint.Row, e.StartPoint.Column,
		e.OldEndPoint.Row, e.OldEndPoint.Column,
		e.NewEndPoint.Row, e.NewEndPoint.Column)
	printf("changed ranges: %d\n", len(r.Ranges))
	for _, cr := range r.Ranges {
		printf("  [%d,%d) %d:%d-%d:%d\n", cr.StartByte, cr.EndByte,
			cr.StartPoint.Row, cr.StartPoint.Column, cr.EndPoint.Row, cr.EndPoint.Column)
	}
	if r.HasError {
		printf("new tree has syntax errors\n")
	}
	return err
}
