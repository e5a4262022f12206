package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/tunecord/internal/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the tunecord systemd user service",
	Long: `Uninstall the tunecord systemd user service and stop it from running automatically.

This command will:
  - Stop and disable the running service (if any)
  - Remove the unit file from ~/.config/systemd/user/
  - Reload the user manager

After uninstalling, tunecord will no longer run automatically on login.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		unitPath, err := daemon.GetUnitPath()
		if err != nil {
			return fmt.Errorf("failed to get unit path: %w", err)
		}

		// Check if unit exists
		if _, err := os.Stat(unitPath); os.IsNotExist(err) {
			fmt.Println("Service is not installed (unit not found)")
			return nil
		}

		fmt.Println("Stopping service...")
		if err := systemctl("disable", "--now", daemon.UnitName); err != nil {
			fmt.Printf("Warning: failed to stop service: %v\n", err)
			fmt.Println("Continuing with unit removal...")
		} else {
			fmt.Println("✓ Service stopped")
		}

		if err := os.Remove(unitPath); err != nil {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}

		if err := systemctl("daemon-reload"); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}

		fmt.Printf("✓ Removed unit from %s\n", unitPath)
		fmt.Println("\nThe tunecord service has been uninstalled successfully.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  tunecord install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
