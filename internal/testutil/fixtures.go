// Package testutil provides shared Thrift fixtures and helpers for repository tests.
package testutil

import (
	"bytes"
	"testing"
)

// SimpleStruct is the smallest well-formed document used across packages.
const SimpleStruct = "struct User {\n  1: string name,\n}\n"

// Representative exercises most top-level declarations and member forms.
const Representative = `
include "shared.thrift"
cpp_include "legacy.h"
namespace go demo.example

// leading comment
typedef list<i64> cpp_type "std::vector<int64_t>" IDs
const map<string, i32> DEFAULTS = {"a": 1, "b": 2}

enum Color {
  RED = 1,
  BLUE = 2,
}

struct User {
  1: required string name,
  2: optional IDs ids,
  3: list<string> tags (foo = "bar"),
}

service UserService extends BaseService {
  oneway void ping(),
  i32 lookup(1: string key) throws (1: string message),
}
`

// Broken contains recoverable syntax errors.
const Broken = `
struct Broken {
  1: string name
  2: list<i32 values
}
service Svc {
  void ok(1: i32 id)
`

// Deprecated uses legacy syntax the grammar still accepts.
const Deprecated = `
senum LegacyNames {
  "FOO",
  "BAR";
}

union LegacyUnion {
  1: byte code xsd_all,
}

service LegacyService {
  async byte lookup(1: byte key);
}
`

// Offset returns the byte offset of the first occurrence of marker in src.
func Offset(tb testing.TB, src []byte, marker string) int {
	tb.Helper()
	idx := bytes.Index(src, []byte(marker))
	if idx < 0 {
		tb.Fatalf("marker %q not found in source", marker)
	}
	return idx
}
