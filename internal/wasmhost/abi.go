package wasmhost

import (
	"encoding/binary"
	"fmt"

	"github.com/kpumuk/twbridge/internal/bridge"
)

// Record sizes of the runtime module's C structs. Every field is a little-endian uint32.
const (
	nodeSize         = 24
	inputEditSize    = 36
	changedRangeSize = 24
	nodeInfoSize     = 20
	flatNodeSize     = 28
)

// optionalExportNodes is bound when the module provides it. Older runtime builds do not, and
// ExportNodes then walks the tree from the host.
const optionalExportNodes = "tw_tree_export_nodes"

var requiredExports = []string{
	"malloc",
	"free",
	"strlen",
	"tree_sitter_thrift",
	"tw_parser_new",
	"tw_parser_delete",
	"tw_parser_set_language",
	"tw_parser_parse_string",
	"tw_tree_delete",
	"tw_tree_edit",
	"tw_tree_changed_ranges",
	"tw_tree_root_node",
	"tw_node_inspect",
	"tw_node_children",
	"tw_node_type",
}

func encodeInputEdit(e bridge.InputEdit) [inputEditSize]byte {
	var buf [inputEditSize]byte
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], e.StartByte)
	le.PutUint32(buf[4:8], e.OldEndByte)
	le.PutUint32(buf[8:12], e.NewEndByte)
	le.PutUint32(buf[12:16], e.StartPoint.Row)
	le.PutUint32(buf[16:20], e.StartPoint.Column)
	le.PutUint32(buf[20:24], e.OldEndPoint.Row)
	le.PutUint32(buf[24:28], e.OldEndPoint.Column)
	le.PutUint32(buf[28:32], e.NewEndPoint.Row)
	le.PutUint32(buf[32:36], e.NewEndPoint.Column)
	return buf
}

func decodeChangedRanges(buf []byte, out []bridge.ChangedRange) error {
	if len(buf) != len(out)*changedRangeSize {
		return fmt.Errorf("changed ranges buffer: %d bytes for %d records", len(buf), len(out))
	}
	le := binary.LittleEndian
	for i := range out {
		b := buf[i*changedRangeSize : (i+1)*changedRangeSize]
		out[i] = bridge.ChangedRange{
			StartByte:  le.Uint32(b[0:4]),
			EndByte:    le.Uint32(b[4:8]),
			StartPoint: bridge.Point{Row: le.Uint32(b[8:12]), Column: le.Uint32(b[12:16])},
			EndPoint:   bridge.Point{Row: le.Uint32(b[16:20]), Column: le.Uint32(b[20:24])},
		}
	}
	return nil
}

func decodeNodeInfo(buf []byte) (bridge.NodeInfo, error) {
	if len(buf) != nodeInfoSize {
		return bridge.NodeInfo{}, fmt.Errorf("node info buffer: %d bytes", len(buf))
	}
	le := binary.LittleEndian
	return bridge.NodeInfo{
		Symbol:     le.Uint32(buf[0:4]),
		StartByte:  le.Uint32(buf[4:8]),
		EndByte:    le.Uint32(buf[8:12]),
		ChildCount: le.Uint32(buf[12:16]),
		Flags:      bridge.NodeFlags(le.Uint32(buf[16:20])),
	}, nil
}

// decodeFlatNode decodes one export record and returns the address of its type name. Parent is
// stored as index+1 with 0 for the root.
func decodeFlatNode(buf []byte) (bridge.FlatNode, uint32, error) {
	if len(buf) != flatNodeSize {
		return bridge.FlatNode{}, 0, fmt.Errorf("flat node buffer: %d bytes", len(buf))
	}
	le := binary.LittleEndian
	n := bridge.FlatNode{
		NodeInfo: bridge.NodeInfo{
			Symbol:     le.Uint32(buf[0:4]),
			StartByte:  le.Uint32(buf[4:8]),
			EndByte:    le.Uint32(buf[8:12]),
			ChildCount: le.Uint32(buf[12:16]),
			Flags:      bridge.NodeFlags(le.Uint32(buf[16:20])),
		},
		Parent: int32(le.Uint32(buf[24:28])) - 1,
	}
	return n, le.Uint32(buf[20:24]), nil
}
