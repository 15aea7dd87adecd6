package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

const scenarioFixture = `name: fixture
duration: 1s
graph:
  nodes:
    - {id: a, x: 0, y: 0}
    - {id: b, x: 100, y: 0}
    - {id: c, x: 100, y: 100}
  edges:
    - {id: a-b, source: a, target: b, protocol: http, rate: 750, latency: 0.5, percent_err: 20}
    - {id: b-c, source: b, target: c, protocol: grpc, rate: 750, latency: 1}
updates:
  - at: 500ms
    edges:
      - {id: c-a, source: c, target: a, protocol: tcp, rate: 750}
`

const graphFixture = `{
  "nodes": [{"id": "a", "x": 0, "y": 0}, {"id": "b", "x": 100, "y": 0}],
  "edges": [{"id": "a-b", "source": "a", "target": "b", "rate": 750}]
}`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	// Keep the tests clear of a developer's .env.
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	if ctx == nil {
		ctx = context.Background()
	}
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}
