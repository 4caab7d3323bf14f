package cmd

import (
	"github.com/spf13/cobra"

	"github.com/johnsaigle/ghstars/pkg/formatter"
	"github.com/johnsaigle/ghstars/pkg/lookup"
)

var (
	outputFormat string
	concurrency  int
	noExitCode   bool
	locale       string
	lookupInputs targetSources

	lookupCmd = &cobra.Command{
		Use:   "lookup [target...]",
		Short: "Show stars and activity for repositories",
		Long: `Look up one or more repositories. A target may be owner/name, a github.com
URL, or a Go import path such as golang.org/x/text.

Exit status is 1 when a repository is archived, inactive or missing and 2 when
a lookup failed.`,
		Example: `  ghstars lookup octocat/Hello-World
  ghstars lookup https://github.com/spf13/cobra --format json
  ghstars lookup --go-mod . --format github-actions`,
		RunE: runLookup,
	}
)

func init() {
	lookupCmd.Flags().StringVarP(&outputFormat, "format", "f", "console", "output format: console, json or github-actions")
	lookupCmd.Flags().IntVar(&concurrency, "concurrency", lookup.DefaultConcurrency, "maximum lookups in flight")
	lookupCmd.Flags().BoolVar(&noExitCode, "no-exit-code", false, "always exit 0 when lookups complete")
	lookupCmd.Flags().StringVar(&locale, "locale", "", "locale for star counts, e.g. en or de")
	addTargetFlags(lookupCmd, &lookupInputs)
	rootCmd.AddCommand(lookupCmd)
}

func addTargetFlags(cmd *cobra.Command, s *targetSources) {
	cmd.Flags().StringVar(&s.fromFile, "from-file", "", "read targets from a file, one per line (- for stdin)")
	cmd.Flags().StringVar(&s.goMod, "go-mod", "", "look up the requirements of a go.mod file or module directory")
	cmd.Flags().BoolVar(&s.includeIndirect, "indirect", false, "include indirect requirements with --go-mod")
}

func runLookup(cmd *cobra.Command, args []string) error {
	fmtr, err := formatter.New(outputFormat, formatter.Options{
		Verbose:    verbose,
		NoExitCode: noExitCode,
		Locale:     locale,
	})
	if err != nil {
		return err
	}

	keys, err := lookupInputs.collect(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()
	rt.maintainOnStart(ctx, cfg.Settings())

	results := rt.svc.LookupAll(ctx, keys, cfg.Settings(), concurrency)

	if err := fmtr.Format(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if code := fmtr.ShouldExit(results); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
