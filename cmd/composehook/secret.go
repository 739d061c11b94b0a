package main

import (
	"fmt"

	"composehook/internal/security"

	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a webhook token",
	Long: `Generate a cryptographically random token suitable for
COMPOSEHOOK_TOKEN and the X-Hook-Token request header.`,
	RunE: runSecret,
}

func runSecret(cmd *cobra.Command, args []string) error {
	token, err := security.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}
