package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"github.com/kpumuk/twbridge/internal/dump"
	"github.com/kpumuk/twbridge/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runWith(t *testing.T, fs afero.Fs, env map[string]string, stdin string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	st := &globalState{
		fs:     fs,
		stdin:  strings.NewReader(stdin),
		stdout: &stdout,
		stderr: &stderr,
		lookupEnv: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	code := execute(context.Background(), st, args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func fixtureFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"user.thrift":   testutil.SimpleStruct,
		"user2.thrift":  "struct User {\n  1: string name,\n  2: i32 age,\n}\n",
		"broken.thrift": testutil.Broken,
		"full.thrift":   testutil.Representative,
	}
	for name, src := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(src), 0o644))
	}
	return fs
}

func TestParseSingleFileSexp(t *testing.T) {
	t.Parallel()

	res := runWith(t, fixtureFs(t), nil, "", "parse", "--named-only", "user.thrift")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "(source_file [0-34]\n"), res.stdout)
	assert.Contains(t, res.stdout, "(struct_definition")
	assert.NotContains(t, res.stdout, "\x1b[")
}

func TestParseMultipleFilesJSONPreservesOrder(t *testing.T) {
	t.Parallel()

	res := runWith(t, fixtureFs(t), nil, "", "parse", "--format", "json", "-j", "2",
		"full.thrift", "user.thrift", "user2.thrift")
	require.Equal(t, exitOK, res.code, res.stderr)

	var docs []dump.Document
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &docs))
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"full.thrift", "user.thrift", "user2.thrift"},
		[]string{docs[0].Path, docs[1].Path, docs[2].Path})
	for _, d := range docs {
		assert.Equal(t, "source_file", d.Tree.Type)
	}
}

func TestParseCheckReportsSyntaxErrors(t *testing.T) {
	t.Parallel()

	fs := fixtureFs(t)

	res := runWith(t, fs, nil, "", "parse", "--check", "user.thrift", "broken.thrift")
	assert.Equal(t, exitSyntax, res.code)
	assert.Contains(t, res.stderr, "path=broken.thrift")
	assert.Contains(t, res.stdout, "; broken.thrift\n")
	assert.Contains(t, res.stdout, "ERROR")

	res = runWith(t, fs, nil, "", "parse", "broken.thrift")
	assert.Equal(t, exitOK, res.code)
	assert.Contains(t, res.stderr, "syntax errors")
}

func TestParseReadsStdin(t *testing.T) {
	t.Parallel()

	res := runWith(t, afero.NewMemMapFs(), nil, testutil.SimpleStruct, "parse", "--max-depth", "1", "-")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "(source_file [0-34])\n", res.stdout)
}

func TestDiffPrintsChangedRanges(t *testing.T) {
	t.Parallel()

	fs := fixtureFs(t)

	res := runWith(t, fs, nil, "", "diff", "user.thrift", "user2.thrift")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "edit: [32,32) -> [32,46) at 2:0, old end 2:0, new end 3:0\n"), res.stdout)
	assert.Contains(t, res.stdout, "changed ranges: ")
	assert.NotContains(t, res.stdout, "changed ranges: 0\n")

	res = runWith(t, fs, map[string]string{"THRIFTTREE_FORMAT": "yaml"}, "", "diff", "user.thrift", "user2.thrift")
	require.Equal(t, exitOK, res.code, res.stderr)
	var report diffReport
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "treesitter-cgo", report.Engine)
	assert.Equal(t, uint32(46), report.Edit.NewEndByte)
	assert.NotEmpty(t, report.Ranges)
	assert.False(t, report.HasError)

	res = runWith(t, fs, nil, "", "diff", "user.thrift", "user.thrift")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "changed ranges: 0\n")
}

func TestConfigurationErrors(t *testing.T) {
	t.Parallel()

	fs := fixtureFs(t)
	tests := map[string]struct {
		env      map[string]string
		args     []string
		wantCode int
		wantErr  string
	}{
		"no file": {
			args:     []string{"parse"},
			wantCode: exitUsage,
			wantErr:  "requires at least 1 arg",
		},
		"diff arity": {
			args:     []string{"diff", "user.thrift"},
			wantCode: exitUsage,
			wantErr:  "accepts 2 arg",
		},
		"unknown command": {
			args:     []string{"bogus"},
			wantCode: exitUsage,
			wantErr:  `unknown command "bogus"`,
		},
		"unknown flag": {
			args:     []string{"parse", "--bogus", "user.thrift"},
			wantCode: exitUsage,
			wantErr:  "unknown flag",
		},
		"bad format": {
			args:     []string{"parse", "--format", "xml", "user.thrift"},
			wantCode: exitUsage,
			wantErr:  "unknown output format",
		},
		"bad engine from env": {
			env:      map[string]string{"THRIFTTREE_ENGINE": "javascript"},
			args:     []string{"parse", "user.thrift"},
			wantCode: exitUsage,
			wantErr:  "unknown engine",
		},
		"wasm without module": {
			args:     []string{"parse", "--engine", "wasm", "user.thrift"},
			wantCode: exitUsage,
			wantErr:  "requires a module path",
		},
		"bad jobs": {
			args:     []string{"parse", "-j", "0", "user.thrift"},
			wantCode: exitUsage,
			wantErr:  "--jobs",
		},
		"missing file": {
			args:     []string{"parse", "nope.thrift"},
			wantCode: exitInternal,
			wantErr:  "read nope.thrift",
		},
		"bad wasm checksum": {
			env:      map[string]string{"THRIFTTREE_WASM_MODULE": "rt.wasm"},
			args:     []string{"parse", "--engine", "wasm", "user.thrift"},
			wantCode: exitInternal,
			wantErr:  "wasm checksum mismatch",
		},
	}
	require.NoError(t, afero.WriteFile(fs, "rt.wasm", []byte("not-wasm"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "rt.wasm.sha256", []byte("deadbeef\n"), 0o644))

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := runWith(t, fs, tc.env, "", tc.args...)
			assert.Equal(t, tc.wantCode, res.code, res.stderr)
			assert.Contains(t, res.stderr, tc.wantErr)
		})
	}
}

func TestFlagOverridesEnvironment(t *testing.T) {
	t.Parallel()

	res := runWith(t, fixtureFs(t), map[string]string{
		"THRIFTTREE_ENGINE": "javascript",
		"THRIFTTREE_FORMAT": "xml",
	}, "", "parse", "--engine", "native", "--format", "yaml", "user.thrift")
	require.Equal(t, exitOK, res.code, res.stderr)

	var tree map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &tree))
	assert.Equal(t, "source_file", tree["type"])
}

func TestVerboseLogsEngineActivity(t *testing.T) {
	t.Parallel()

	res := runWith(t, fixtureFs(t), nil, "", "-v", "parse", "user.thrift")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "engine ready")
	assert.Contains(t, res.stderr, "tree parsed")
}
