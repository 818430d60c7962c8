//go:build cgo

// Package treesitterthrift binds the generated tree-sitter grammar for Thrift IDL.
//
// The parser tables under src/ are produced by `tree-sitter generate` and are not edited by hand.
package treesitterthrift

/*
#cgo CFLAGS: -std=c11 -fPIC -Isrc
#include "src/parser.c"
*/
import "C"

import (
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Language returns the tree-sitter language for the Thrift grammar.
func Language() *sitter.Language {
	return sitter.NewLanguage(unsafe.Pointer(C.tree_sitter_thrift()))
}
