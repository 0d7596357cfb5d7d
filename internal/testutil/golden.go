package testutil

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGoldenJSON marshals v as indented JSON and compares it against
// testdata/golden/<name>.golden in the calling package.
//
// To regenerate golden files, run:
//
//	go test ./internal/... -update
func AssertGoldenJSON(t *testing.T, name string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden value: %v", err)
	}
	data = append(data, '\n')
	AssertGoldenBytes(t, name, data)
}

// AssertGoldenBytes compares data against testdata/golden/<name>.golden.
func AssertGoldenBytes(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
