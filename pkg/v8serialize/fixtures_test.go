package v8serialize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// fixtureMetadata describes a Node.js-generated wire fixture's provenance,
// written alongside each .bin fixture by testgen's generator scripts.
type fixtureMetadata struct {
	NodeVersion string `json:"nodeVersion"`
	V8Version   string `json:"v8Version"`
	ByteLength  int    `json:"byteLength"`
	HexDump     string `json:"hexDump"`
	Description string `json:"description"`
}

// loadFixture loads a Node.js-generated fixture pair (name.bin, name.json)
// from testdata/fixtures. It skips the calling test when fixtures haven't
// been generated yet (see testgen/generate-all.sh), rather than failing —
// these tests exist to catch drift against a real V8 when fixtures are
// available, not to require a Node.js toolchain for every test run.
func loadFixture(t *testing.T, name string) ([]byte, fixtureMetadata) {
	t.Helper()
	dir := filepath.Join("..", "..", "testdata", "fixtures")
	binPath := filepath.Join(dir, name+".bin")

	binData, err := os.ReadFile(binPath)
	if os.IsNotExist(err) {
		t.Skipf("fixture %q not generated; run testgen/generate-all.sh", name)
	}
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", binPath, err)
	}

	var meta fixtureMetadata
	jsonPath := filepath.Join(dir, name+".json")
	if jsonData, err := os.ReadFile(jsonPath); err == nil {
		_ = json.Unmarshal(jsonData, &meta)
	}
	return binData, meta
}
