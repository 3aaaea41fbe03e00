package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/samvad-hq/zosmf-probe/internal/app"
	"github.com/samvad-hq/zosmf-probe/internal/config"
	"github.com/samvad-hq/zosmf-probe/internal/logger"
	"github.com/spf13/cobra"
)

// ErrAlreadyHandled signals that the command has already reported its failure.
var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// Deps carries what the commands need from main.
type Deps struct {
	Config  *config.Config
	Log     logger.Logger
	Checker app.StatusChecker
	Out     io.Writer
	Err     io.Writer
}

type globalFlags struct {
	profilesFile string
	profile      string
	jsonOutput   bool
}

// NewRootCmd builds the zosmf-probe command tree.
func NewRootCmd(deps *Deps) *cobra.Command {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Err == nil {
		deps.Err = os.Stderr
	}
	if deps.Log == nil {
		deps.Log = &logger.NopLogger{}
	}

	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "zosmf-probe [command] [flags]",
		Short: "Check that z/OSMF systems are reachable and responding",
		Long: `zosmf-probe queries the z/OSMF status endpoint (/zosmf/info) of one or more
configured systems and reports the service information or a classified failure.

Examples:
  # Check the default profile
  zosmf-probe check

  # Check a named profile and print JSON
  zosmf-probe check --profile lpar2 -j

  # Check every profile on the configured interval
  zosmf-probe monitor`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(deps.Out)
	rootCmd.SetErr(deps.Err)

	rootCmd.PersistentFlags().StringVar(&flags.profilesFile, "profiles-file", deps.Config.ProfilesFile, "Path to the profiles file")
	rootCmd.PersistentFlags().StringVarP(&flags.profile, "profile", "p", deps.Config.DefaultProfile, "Profile to use instead of the default")
	rootCmd.PersistentFlags().BoolVarP(&flags.jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newCheckCmd(deps, flags))
	rootCmd.AddCommand(newMonitorCmd(deps, flags))
	rootCmd.AddCommand(newHistoryCmd(deps, flags))
	return rootCmd
}

// Execute runs the command tree and reports unhandled errors.
func Execute(ctx context.Context, deps *Deps, args []string) error {
	rootCmd := NewRootCmd(deps)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, ErrAlreadyHandled) {
		return err
	}
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("json")
	if jsonOutput {
		printJSON(deps.Out, map[string]string{"error": err.Error()})
	} else {
		errorLabel.Fprintf(deps.Err, "Error: %v\n", err)
	}
	return ErrAlreadyHandled
}

func printJSON(w io.Writer, v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "{\"error\": %q}\n", err.Error())
		return
	}
	fmt.Fprintln(w, string(out))
}
