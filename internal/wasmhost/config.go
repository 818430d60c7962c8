package wasmhost

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// ChecksumSuffix is appended to a module path to locate its checksum sidecar.
const ChecksumSuffix = ".sha256"

// Config holds the runtime module and its expected checksum.
type Config struct {
	// Module is the compiled runtime module bytes.
	Module []byte
	// Checksum is the lowercase hex SHA-256 of Module.
	Checksum string
}

// LoadConfig reads the module at path and its checksum from path+ChecksumSuffix. The sidecar may
// use sha256sum output format; only the first field is used.
func LoadConfig(fs afero.Fs, path string) (Config, error) {
	module, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("read wasm module: %w", err)
	}
	sum, err := afero.ReadFile(fs, path+ChecksumSuffix)
	if err != nil {
		return Config{}, fmt.Errorf("read wasm checksum: %w", err)
	}
	fields := strings.Fields(string(sum))
	if len(fields) == 0 {
		return Config{}, fmt.Errorf("%w: empty checksum file %s", ErrChecksumMismatch, path+ChecksumSuffix)
	}
	return Config{Module: module, Checksum: strings.ToLower(fields[0])}, nil
}
