package dump

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kpumuk/twbridge/internal/bridge"
	"github.com/kpumuk/twbridge/internal/testutil"
)

type fakeNode struct {
	typ      string
	start    uint32
	end      uint32
	flags    bridge.NodeFlags
	children []*fakeNode
	fail     bool
}

type fakeInspector struct{}

var errBroken = errors.New("broken node")

func (fakeInspector) Inspect(n *fakeNode) (bridge.NodeInfo, error) {
	if n.fail {
		return bridge.NodeInfo{}, errBroken
	}
	return bridge.NodeInfo{
		StartByte:  n.start,
		EndByte:    n.end,
		ChildCount: uint32(len(n.children)),
		Flags:      n.flags,
	}, nil
}

func (fakeInspector) NodeType(n *fakeNode) (string, error) {
	return n.typ, nil
}

func (fakeInspector) Children(n *fakeNode, out []*fakeNode) (uint32, error) {
	copy(out, n.children)
	return uint32(len(n.children)), nil
}

const fakeSource = "struct A ?"

func fakeTree() *fakeNode {
	named := bridge.FlagNamed
	return &fakeNode{typ: "source_file", end: 10, flags: named | bridge.FlagHasError, children: []*fakeNode{{
		typ: "struct_definition", end: 10, flags: named | bridge.FlagHasError,
		children: []*fakeNode{
			{typ: "struct", end: 6},
			{typ: "identifier", start: 7, end: 8, flags: named},
			{typ: "ERROR", start: 9, end: 10, flags: named | bridge.FlagError | bridge.FlagHasError},
			{typ: "}", start: 10, end: 10, flags: bridge.FlagMissing | bridge.FlagHasError},
		},
	}}}
}

func TestWriteSexp(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts Options
		want string
	}{
		"full": {
			opts: Options{Source: []byte(fakeSource)},
			want: `(source_file [0-10]
  (struct_definition [0-10]
    ("struct" [0-6])
    (identifier [7-8] "A")
    (ERROR [9-10] "?")
    (MISSING "}" [10-10])))
`,
		},
		"named only": {
			opts: Options{NamedOnly: true},
			want: `(source_file [0-10]
  (struct_definition [0-10]
    (identifier [7-8])
    (ERROR [9-10])))
`,
		},
		"max depth": {
			opts: Options{MaxDepth: 2},
			want: `(source_file [0-10]
  (struct_definition [0-10]))
`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			n, err := Build[*fakeNode](fakeInspector{}, fakeTree(), tc.opts)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, WriteSexp(&buf, n, false))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestWriteSexpColorizesErrors(t *testing.T) {
	t.Parallel()

	n, err := Build[*fakeNode](fakeInspector{}, fakeTree(), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSexp(&buf, n, true))
	assert.Contains(t, buf.String(), "\x1b[31;1mERROR\x1b[0m")
	assert.NotContains(t, buf.String(), "\x1b[31;1midentifier")
}

func TestBuildPropagatesErrors(t *testing.T) {
	t.Parallel()

	root := fakeTree()
	root.children[0].children[1].fail = true

	_, err := Build[*fakeNode](fakeInspector{}, root, Options{})
	require.ErrorIs(t, err, errBroken)
}

func TestWriteJSONAndYAML(t *testing.T) {
	t.Parallel()

	n, err := Build[*fakeNode](fakeInspector{}, fakeTree(), Options{Source: []byte(fakeSource)})
	require.NoError(t, err)

	var jsonBuf bytes.Buffer
	require.NoError(t, Write(&jsonBuf, n, FormatJSON, true))
	var decoded Node
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, "source_file", decoded.Type)
	require.Len(t, decoded.Children, 1)
	errNode := decoded.Children[0].Children[2]
	assert.Equal(t, []string{"named", "error", "has-error"}, errNode.Flags)
	assert.Equal(t, "?", errNode.Text)
	assert.NotContains(t, jsonBuf.String(), "\x1b[")

	var yamlBuf bytes.Buffer
	require.NoError(t, Write(&yamlBuf, n, FormatYAML, false))
	var tree map[string]any
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &tree))
	assert.Equal(t, "source_file", tree["type"])
	assert.Equal(t, 10, tree["end_byte"])
	assert.Len(t, tree["children"], 1)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatSexp, "SEXP": FormatSexp, " json ": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
	require.ErrorIs(t, Write(&bytes.Buffer{}, &Node{}, Format("xml"), false), ErrUnknownFormat)
}

func TestWalkVisitsPreOrder(t *testing.T) {
	t.Parallel()

	n, err := Build[*fakeNode](fakeInspector{}, fakeTree(), Options{})
	require.NoError(t, err)

	var got []string
	Walk(n, func(node *Node, depth int) {
		got = append(got, node.Type)
		if node.Type == "identifier" {
			assert.Equal(t, 2, depth)
		}
	})
	assert.Equal(t, []string{"source_file", "struct_definition", "struct", "identifier", "ERROR", "}"}, got)
}

func TestBuildFromBridge(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	defer b.Close()
	p, err := b.NewParser()
	require.NoError(t, err)
	require.NoError(t, b.SetLanguage(p))
	tree, err := b.Parse(context.Background(), p, 0, []byte(testutil.SimpleStruct))
	require.NoError(t, err)
	root, err := b.RootNode(tree)
	require.NoError(t, err)

	n, err := Build[bridge.Node](b, root, Options{NamedOnly: true, Source: []byte(testutil.SimpleStruct)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSexp(&buf, n, false))
	assert.Contains(t, buf.String(), "(source_file [0-34]\n  (struct_definition")
	assert.NotContains(t, buf.String(), `"{"`)
}

func TestWriteDocuments(t *testing.T) {
	t.Parallel()

	n, err := Build[*fakeNode](fakeInspector{}, fakeTree(), Options{MaxDepth: 1})
	require.NoError(t, err)
	docs := []Document{{Path: "a.thrift", Tree: n}, {Path: "b.thrift", Tree: n}}

	var sexp bytes.Buffer
	require.NoError(t, WriteDocuments(&sexp, docs, FormatSexp, false))
	assert.Equal(t, "; a.thrift\n(source_file [0-10])\n; b.thrift\n(source_file [0-10])\n", sexp.String())

	var js bytes.Buffer
	require.NoError(t, WriteDocuments(&js, docs, FormatJSON, false))
	var decoded []Document
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "b.thrift", decoded[1].Path)
	assert.Equal(t, "source_file", decoded[1].Tree.Type)

	var ym bytes.Buffer
	require.NoError(t, WriteDocuments(&ym, docs, FormatYAML, false))
	assert.Contains(t, ym.String(), "- path: a.thrift\n")
}
