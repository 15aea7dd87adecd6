package cli

import (
	"os"
	"strings"
	"testing"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "meshflow" {
		t.Fatalf("Use = %q, want meshflow", cmd.Use)
	}

	want := []string{"serve", "simulate", "render", "generate", "publish"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRoot_BadLogLevel(t *testing.T) {
	_, err := execute(t, nil, "--log-level", "loud", "generate", "config", "--output", t.TempDir()+"/c.yaml")
	if err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestRoot_MissingExplicitEnvFile(t *testing.T) {
	_, err := execute(t, nil, "--env-file", t.TempDir()+"/missing.env", "generate", "config", "--output", t.TempDir()+"/c.yaml")
	if err == nil || !strings.Contains(err.Error(), "env file") {
		t.Fatalf("err = %v, want env file error", err)
	}
}

func TestRoot_EnvFileFeedsConfig(t *testing.T) {
	// Register the variable for restore, then clear it so the env file can
	// set it.
	t.Setenv("MESHFLOW_ENGINE_FRAME_RATE", "")
	os.Unsetenv("MESHFLOW_ENGINE_FRAME_RATE")

	env := writeFixture(t, "test.env", "MESHFLOW_ENGINE_FRAME_RATE=0\n")
	scenario := writeFixture(t, "scenario.yaml", scenarioFixture)

	_, err := execute(t, nil, "--env-file", env, "simulate", "--scenario", scenario)
	if err == nil || !strings.Contains(err.Error(), "FrameRate") {
		t.Fatalf("err = %v, want the frame rate from the env file rejected", err)
	}
}
