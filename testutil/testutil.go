// Package testutil provides helpers for wallet tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/keys-pub/keys"
)

// Path for a temporary test database.
func Path() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s.db", keys.RandFileName()))
}

// Seed returns a deterministic 32 byte seed.
func Seed(b byte) *[32]byte {
	return keys.Bytes32(bytes.Repeat([]byte{b}, 32))
}
