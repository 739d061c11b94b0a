package main

import (
	"fmt"
	"os"
	"path/filepath"

	"composehook/internal/security"
	"composehook/pkg/templates"

	"github.com/spf13/cobra"
)

var (
	installUser      string
	installGroup     string
	installStacksDir string
	installLogFile   string
	installUnitPath  string
	installConfigDir string
	installDryRun    bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install a systemd unit and sample configuration",
	Long: `Render a systemd service unit and a sample environment file for
running composehook as a daemon.

The unit runs 'composehook serve' as the given user and the sample config
documents every COMPOSEHOOK_* variable. Use --dry-run to print both
files instead of writing them.`,
	RunE: runInstallCmd,
}

func init() {
	installCmd.Flags().StringVar(&installUser, "user", "composehook", "User the service runs as")
	installCmd.Flags().StringVar(&installGroup, "group", "composehook", "Group the service runs as")
	installCmd.Flags().StringVar(&installStacksDir, "stacks-dir", "/srv/stacks", "Directory of compose stacks")
	installCmd.Flags().StringVar(&installLogFile, "log", "/var/log/composehook/composehook.log", "Path to log file")
	installCmd.Flags().StringVar(&installUnitPath, "unit-path", "/etc/systemd/system/composehook.service", "Where to write the systemd unit")
	installCmd.Flags().StringVar(&installConfigDir, "config-dir", "/etc/composehook", "Where to write the sample config")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Print the rendered files instead of writing them")
}

func runInstallCmd(cmd *cobra.Command, args []string) error {
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve binary path: %w", err)
	}

	workingDir := filepath.Dir(binary)

	unit, err := templates.RenderSystemdService(installUser, installGroup, workingDir, binary, installStacksDir, installLogFile)
	if err != nil {
		return fmt.Errorf("failed to render systemd unit: %w", err)
	}

	sample, err := templates.RenderSampleConfig()
	if err != nil {
		return fmt.Errorf("failed to render sample config: %w", err)
	}

	samplePath := filepath.Join(installConfigDir, "composehook.yaml.sample")

	if installDryRun {
		fmt.Printf("# %s\n%s\n", installUnitPath, unit)
		fmt.Printf("# %s\n%s\n", samplePath, sample)
		return nil
	}

	if os.Geteuid() != 0 {
		return fmt.Errorf("install must be run as root (use sudo, or --dry-run)")
	}

	if err := writeSecure(installUnitPath, unit, security.PermUnitFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", installUnitPath)

	if err := security.CreateSecureDir(installConfigDir, security.PermDirectory); err != nil {
		return fmt.Errorf("failed to create %s: %w", installConfigDir, err)
	}
	if err := writeSecure(samplePath, sample, security.PermConfigFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", samplePath)

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Set COMPOSEHOOK_TOKEN in %s (generate one with 'composehook secret')\n", filepath.Join(installConfigDir, "composehook.env"))
	fmt.Printf("  2. Optionally copy %s to %s for per-stack overrides\n", samplePath, filepath.Join(installConfigDir, "composehook.yaml"))
	fmt.Println("  3. systemctl daemon-reload")
	fmt.Println("  4. systemctl enable --now composehook")

	return nil
}

func writeSecure(path, content string, perm os.FileMode) error {
	file, err := security.CreateSecureFile(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
