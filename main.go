package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"matrixdesk/app/api"
)

var version = "0.1.0-dev"

// envPassword lets scripts log in before a command without a prompt.
const envPassword = "MATRIXDESK_PASSWORD"

// stdinArg in place of a file name reads the matrix from standard input.
const stdinArg = "-"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var se *shownError
		if !errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "matrixdesk",
		Short: "Preview Matrix Market files and run matrix operations on a remote service",
		Long: `matrixdesk parses Matrix Market files for preview, uploads them to a
matrix service and asks the service to invert or decompose stored matrices.
Inverse and decomposition results are checked locally before they are shown.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.settingsPath, "settings", "", "Settings file (default $MATRIXDESK_SETTINGS or matrixdesk.yml next to the binary)")
	pf.StringVar(&c.server, "server", "", "Matrix service base URL (overrides server_url)")
	pf.StringVar(&c.login, "login", "", "Login to act as (overrides the remembered login)")
	pf.StringVar(&c.logMode, "log-mode", "", "Log mode: dev|prod (overrides log_mode)")
	pf.BoolVarP(&c.quiet, "quiet", "q", false, "Do not show the busy indicator")

	loginCmd := &cobra.Command{
		Use:   "login <login>",
		Short: "Check credentials against the service",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runLogin,
	}
	loginCmd.Flags().String("password", "", "Password (default $"+envPassword+" or prompt)")
	loginCmd.Flags().Bool("remember", false, "Remember the login name in the settings file")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account for --login",
		Args:  cobra.NoArgs,
		RunE:  c.runRegister,
	}
	registerCmd.Flags().String("name", "", "Full name")
	registerCmd.Flags().String("email", "", "Email address")
	registerCmd.Flags().String("password", "", "Password (default $"+envPassword+" or prompt)")

	previewCmd := &cobra.Command{
		Use:   "preview <file|->",
		Short: "Parse a Matrix Market file (or stdin) and show it as a table",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runPreview,
	}
	previewCmd.Flags().String("xlsx", "", "Also write the grid to this workbook")
	previewCmd.Flags().Bool("copy", false, "Copy the grid to the clipboard as tab separated text")

	uploadCmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a matrix file unmodified",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runUpload,
	}
	uploadCmd.Flags().Bool("preview", false, "Parse and show the file while it uploads")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the matrices stored for the login",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}
	listCmd.Flags().Bool("json", false, "Print machine-readable output")

	invertCmd := &cobra.Command{
		Use:   "invert <matrix-name>",
		Short: "Invert a stored matrix",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runInvert,
	}
	invertCmd.Flags().String("xlsx", "", "Write the original and inverse to this workbook")

	decomposeCmd := &cobra.Command{
		Use:   "decompose <matrix-name>",
		Short: "Decompose a stored matrix (lu, qr or ldl)",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runDecompose,
	}
	decomposeCmd.Flags().StringP("algorithm", "a", string(api.AlgorithmLU), "Algorithm: lu|qr|ldl")
	decomposeCmd.Flags().Bool("local", false, "Treat the argument as a local file and send its grid")
	decomposeCmd.Flags().String("xlsx", "", "Write the factors to this workbook")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show service health",
		Args:  cobra.NoArgs,
		RunE:  c.runStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable output")

	generateCmd := &cobra.Command{
		Use:   "generate <rows> <cols>",
		Short: "Write a random matrix in Matrix Market array format",
		Args:  cobra.ExactArgs(2),
		RunE:  c.runGenerate,
	}
	generateCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	generateCmd.Flags().String("field", "integer", "Field: integer|real")
	generateCmd.Flags().Float64("density", 0.1, "Share of nonzero cells (0..1)")
	generateCmd.Flags().Int("min", 1, "Smallest nonzero value")
	generateCmd.Flags().Int("max", 100, "Largest nonzero value")
	generateCmd.Flags().Bool("symmetric", false, "Generate a symmetric matrix")
	generateCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")

	discoverCmd := &cobra.Command{
		Use:   "discover [dir]",
		Short: "Find matrix files below a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runDiscover,
	}
	discoverCmd.Flags().String("pattern", "", "Glob pattern (default all Matrix Market extensions)")
	discoverCmd.Flags().StringSlice("exclude", nil, "Base name patterns to skip")
	discoverCmd.Flags().Int("max", 0, "Stop after this many files (0 = unlimited)")
	discoverCmd.Flags().Bool("hash", false, "Print a hash of the discovered files' paths and contents")

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
	}
	settingsShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE:  c.runSettingsShow,
	}
	settingsSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and save it",
		Args:  cobra.ExactArgs(2),
		RunE:  c.runSettingsSet,
	}
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	rootCmd.AddCommand(
		loginCmd,
		registerCmd,
		previewCmd,
		uploadCmd,
		listCmd,
		invertCmd,
		decomposeCmd,
		statusCmd,
		generateCmd,
		discoverCmd,
		settingsCmd,
	)
	return rootCmd
}
