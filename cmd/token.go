package cmd

import (
	"github.com/spf13/cobra"
)

var (
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub token",
	}

	tokenVerifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Check that the configured token is accepted by GitHub",
		RunE:  runTokenVerify,
	}
)

func init() {
	tokenCmd.AddCommand(tokenVerifyCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.github.ValidateToken(ctx, cfg.Token); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "GitHub token is valid")
	return nil
}
