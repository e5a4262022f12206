package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// UnitName is the systemd user unit installed for the daemon
const UnitName = "tunecord.service"

const unitTemplate = `[Unit]
Description=Discord Rich Presence for {{.Player}}
After=graphical-session.target
PartOf=graphical-session.target

[Service]
Type=simple
ExecStart={{.ExecStart}}
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=10

[Install]
WantedBy=default.target
`

// UnitConfig holds the configuration for generating a systemd user unit
type UnitConfig struct {
	BinaryPath       string
	Args             []string // Flags passed to the daemon
	Player           string
	WorkingDirectory string
}

// ExecStart returns the quoted command line for the unit
func (c UnitConfig) ExecStart() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range append([]string{c.BinaryPath}, c.Args...) {
		parts = append(parts, quoteUnitArg(p))
	}
	return strings.Join(parts, " ")
}

// quoteUnitArg quotes an argument for an ExecStart line when needed.
func quoteUnitArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\$%;") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `$$`, `%`, `%%`)
	return `"` + r.Replace(s) + `"`
}

// GenerateUnit generates a systemd unit file from the template
func GenerateUnit(config UnitConfig) (string, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute unit template: %w", err)
	}

	return buf.String(), nil
}

// GetUnitPath returns the path where the unit should be installed
func GetUnitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	return filepath.Join(dir, "systemd", "user", UnitName), nil
}
