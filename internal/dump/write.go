package dump

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/kpumuk/twbridge/internal/bridge"
)

// Format selects an output encoding.
type Format string

// Supported formats.
const (
	FormatSexp Format = "sexp"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat resolves a format name. The empty name selects FormatSexp.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatSexp, nil
	case FormatSexp, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q (want sexp, json, or yaml)", ErrUnknownFormat, name)
	}
}

// Write encodes n to w in format f. colorize only affects FormatSexp.
func Write(w io.Writer, n *Node, f Format, colorize bool) error {
	switch f {
	case FormatSexp, "":
		return WriteSexp(w, n, colorize)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(n)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(n); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
}

// WriteSexp writes n as an indented S-expression, one node per line. Error and missing nodes are
// highlighted when colorize is set.
func WriteSexp(w io.Writer, n *Node, colorize bool) error {
	bad := color.New(color.FgRed, color.Bold)
	if colorize {
		bad.EnableColor()
	} else {
		bad.DisableColor()
	}

	var sb strings.Builder
	var write func(node *Node, depth int)
	write = func(node *Node, depth int) {
		if depth > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteByte('(')

		label := sexpLabel(node)
		if node.Has(bridge.FlagError) || node.Has(bridge.FlagMissing) {
			label = bad.Sprint(label)
		}
		sb.WriteString(label)
		fmt.Fprintf(&sb, " [%d-%d]", node.StartByte, node.EndByte)
		if node.Text != "" && node.Has(bridge.FlagNamed) {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Quote(node.Text))
		}
		for _, c := range node.Children {
			write(c, depth+1)
		}
		sb.WriteByte(')')
	}
	write(n, 0)
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

func sexpLabel(n *Node) string {
	label := n.Type
	if !n.Has(bridge.FlagNamed) {
		label = strconv.Quote(n.Type)
	}
	if n.Has(bridge.FlagMissing) {
		label = "MISSING " + label
	}
	return label
}

// Document is one named tree in a multi-file dump.
type Document struct {
	Path string `json:"path" yaml:"path"`
	Tree *Node  `json:"tree" yaml:"tree"`
}

// WriteDocuments encodes docs to w. S-expressions are separated by a "; path" comment line; JSON
// and YAML encode the list as a single array.
func WriteDocuments(w io.Writer, docs []Document, f Format, colorize bool) error {
	switch f {
	case FormatSexp, "":
		for _, d := range docs {
			if _, err := fmt.Fprintf(w, "; %s\n", d.Path); err != nil {
				return err
			}
			if err := WriteSexp(w, d.Tree, colorize); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
}
