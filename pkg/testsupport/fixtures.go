// Package testsupport holds the API fixtures, golden-file helpers and the fake
// REST server shared by the package tests.
package testsupport

import (
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// UpdateGoldenEnv rewrites golden files instead of comparing when set.
const UpdateGoldenEnv = "UPDATE_GOLDEN"

//go:embed testdata/*.json
var fixtures embed.FS

// Fixture returns a bundled API response by file name.
func Fixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("no bundled fixture %s: %v", name, err)
	}
	return data
}

// FixtureValue reads one gjson path out of a bundled fixture.
func FixtureValue(t testing.TB, name, path string) gjson.Result {
	t.Helper()
	v := gjson.GetBytes(Fixture(t, name), path)
	if !v.Exists() {
		t.Fatalf("fixture %s has no %s", name, path)
	}
	return v
}

// LoadFixture reads a file relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON decodes the file at path into dest.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()
	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("decode fixture %s: %v", path, err)
	}
}

// WriteGolden writes data to path, creating the directory.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create golden dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden %s: %v", path, err)
	}
}

// CompareWithGolden fails when actual differs from the golden file. A missing
// file, or UPDATE_GOLDEN in the environment, writes actual instead.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()
	expected, ok := readGolden(t, path, actual)
	if !ok {
		return
	}
	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// CompareWithGoldenJSON encodes actual and compares it with the golden JSON at
// path. Whitespace and indentation are ignored; key order is not.
func CompareWithGoldenJSON(t testing.TB, path string, actual any) {
	t.Helper()
	data, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	formatted := pretty.Pretty(data)

	expected, ok := readGolden(t, path, formatted)
	if !ok {
		return
	}
	if string(pretty.Ugly(expected)) != string(pretty.Ugly(formatted)) {
		t.Errorf("JSON mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, formatted)
	}
}

func readGolden(t testing.TB, path string, actual []byte) ([]byte, bool) {
	t.Helper()
	if os.Getenv(UpdateGoldenEnv) != "" {
		WriteGolden(t, path, actual)
		return nil, false
	}
	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Logf("golden file %s does not exist, creating it", path)
		WriteGolden(t, path, actual)
		return nil, false
	}
	if err != nil {
		t.Fatalf("read golden %s: %v", path, err)
	}
	return expected, true
}

// GoldenPath is the path of a golden file under testdata/golden.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
