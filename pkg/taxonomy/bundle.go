package taxonomy

import (
	"bytes"
	_ "embed"
	"sync"
)

// bundledMetadata is the reference metadata shipped with the binary,
// zstd-compressed.
//
//go:embed assets/metadata.json.zst
var bundledMetadata []byte

// BundleName labels the bundled metadata in logs and cache keys.
const BundleName = "bundled metadata.json.zst"

var loadDefault = sync.OnceValues(func() (*Taxonomy, error) {
	return Load(bytes.NewReader(bundledMetadata))
})

// Default returns the taxonomy of the bundled metadata. It is built once
// per process and shared by all callers.
func Default() (*Taxonomy, error) {
	return loadDefault()
}

// Bundled returns the compressed bundled metadata document.
func Bundled() []byte {
	return bundledMetadata
}
