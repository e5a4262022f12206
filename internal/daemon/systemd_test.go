package daemon

import (
	"strings"
	"testing"
)

func TestGenerateUnit(t *testing.T) {
	unit, err := GenerateUnit(UnitConfig{
		BinaryPath:       "/usr/local/bin/tunecord",
		Args:             []string{"--player", "kew", "--size", "150x150"},
		Player:           "kew",
		WorkingDirectory: "/home/user",
	})
	if err != nil {
		t.Fatalf("GenerateUnit: %v", err)
	}

	for _, want := range []string{
		"ExecStart=/usr/local/bin/tunecord --player kew --size 150x150\n",
		"WorkingDirectory=/home/user\n",
		"Description=Discord Rich Presence for kew\n",
		"WantedBy=default.target\n",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q:\n%s", want, unit)
		}
	}
}

func TestExecStartQuoting(t *testing.T) {
	cfg := UnitConfig{
		BinaryPath: "/opt/my apps/tunecord",
		Args:       []string{"--log-file", "/tmp/100%.log"},
	}
	want := `"/opt/my apps/tunecord" --log-file "/tmp/100%%.log"`
	if got := cfg.ExecStart(); got != want {
		t.Errorf("ExecStart() = %s, want %s", got, want)
	}
}
