package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jfmyers9/tunecord/internal/config"
	"github.com/jfmyers9/tunecord/internal/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install tunecord as a systemd user service",
	Long: `Install tunecord as a systemd user service that runs automatically on login.

This command will:
  - Generate a systemd unit running tunecord with the flags given here
  - Install it to ~/.config/systemd/user/
  - Reload the user manager and enable the service
  - Start the service immediately

Example:
  tunecord install --player spotify --hide-button`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate the flags that will be baked into the unit
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Get the path to the current executable
		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		// Resolve symlinks to get the actual binary path
		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		// Get home directory for working directory
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		unitContent, err := daemon.GenerateUnit(daemon.UnitConfig{
			BinaryPath:       binaryPath,
			Args:             daemonArgs(cmd.Flags()),
			Player:           cfg.Player,
			WorkingDirectory: home,
		})
		if err != nil {
			return fmt.Errorf("failed to generate unit: %w", err)
		}

		unitPath, err := daemon.GetUnitPath()
		if err != nil {
			return fmt.Errorf("failed to get unit path: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
			return fmt.Errorf("failed to create unit directory: %w", err)
		}

		if err := os.WriteFile(unitPath, []byte(unitContent), 0644); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}

		fmt.Printf("✓ Installed unit to %s\n", unitPath)

		if err := systemctl("daemon-reload"); err != nil {
			return err
		}
		// restart picks up a changed unit when it was already running
		if err := systemctl("enable", daemon.UnitName); err != nil {
			return err
		}
		if err := systemctl("restart", daemon.UnitName); err != nil {
			return err
		}

		fmt.Println("✓ Service enabled and started successfully")
		fmt.Println("\nYou can check the service status with:")
		fmt.Printf("  systemctl --user status %s\n", daemon.UnitName)
		fmt.Println("\nTo uninstall, run:")
		fmt.Println("  tunecord uninstall")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

// daemonArgs returns the flags explicitly set on the command line, in a form
// that can be passed back to the daemon.
func daemonArgs(flags *pflag.FlagSet) []string {
	var args []string
	flags.Visit(func(f *pflag.Flag) {
		args = append(args, fmt.Sprintf("--%s=%s", f.Name, f.Value.String()))
	})
	return args
}

// systemctl runs a systemctl command against the user manager
func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("systemctl %s failed: %s", strings.Join(args, " "), msg)
		}
		return fmt.Errorf("failed to run systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
