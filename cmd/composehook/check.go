package main

import (
	"fmt"
	"os"
	"strings"

	"composehook/internal/config"
	"composehook/internal/stack"
	"composehook/pkg/cmdutil"
	"composehook/pkg/fileutil"

	"github.com/spf13/cobra"
)

var checkOverridesFile string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and list discovered stacks",
	Long: `Validate the environment configuration and the per-stack overrides
file, scan the stacks directory, and print every deployable stack.

Nothing is pulled or restarted; this is a dry run of server startup.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkOverridesFile, "overrides", "c", getEnvOrDefault("COMPOSEHOOK_OVERRIDES_FILE", ""), "Path to per-stack overrides file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	ok := true
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config: INVALID (%v)\n", err)
		ok = false
	} else {
		fmt.Println("Config: OK")
	}

	if checkOverridesFile == "" {
		checkOverridesFile = fileutil.FindConfigOptional(config.OverridesFileName)
	}
	overrides, err := config.LoadOverrides(checkOverridesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Overrides: INVALID (%v)\n", err)
		return fmt.Errorf("overrides file is invalid")
	}
	if checkOverridesFile != "" {
		fmt.Printf("Overrides: OK (%s, %d stacks)\n", checkOverridesFile, len(overrides.Stacks))
	}

	stacks, err := stack.Scan(cfg.StacksDir, cfg.Registry, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stacks: cannot scan %s (%v)\n", cfg.StacksDir, err)
		return fmt.Errorf("stacks directory is not usable")
	}

	fmt.Printf("Stacks dir: %s\n", cfg.StacksDir)
	fmt.Printf("Allowed tags: %s\n", strings.Join(cfg.AllowedTags, ", "))
	fmt.Printf("Discovered %d stack(s):\n", len(stacks))
	for _, st := range stacks {
		fmt.Printf("  %-24s image=%s compose=%s command=%q\n",
			st.Name, st.Image, st.ComposeFile, cmdutil.FormatCommand(st.ComposeCommand))
		if len(st.ExtraTags) > 0 {
			fmt.Printf("  %-24s extra tags: %s\n", "", strings.Join(st.ExtraTags, ", "))
		}
	}

	if !ok {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}
