package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samvad-hq/zosmf-probe/pkg/profiles"
	"github.com/samvad-hq/zosmf-probe/pkg/zosmf"
	"github.com/spf13/cobra"
)

func newCheckCmd(deps *Deps, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Query the z/OSMF status endpoint of one profile",
		Long: `Query /zosmf/info once for the selected profile. On success the service
information is printed. On failure the classified error message is printed
together with a hint, and the command exits non-zero.

Examples:
  zosmf-probe check --profile lpar1
  zosmf-probe check -j`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfile(flags)
			if err != nil {
				return err
			}
			sess, err := p.Session()
			if err != nil {
				return err
			}

			info, err := deps.Checker.GetZosmfInfo(cmd.Context(), sess)
			if err != nil {
				reportFailure(deps, flags, p.Name, err)
				return ErrAlreadyHandled
			}

			if flags.jsonOutput {
				printJSON(deps.Out, info)
				return nil
			}
			printInfo(deps, p.Name, info)
			return nil
		},
	}
}

// resolveProfile picks --profile, or the profiles file default when it is empty.
func resolveProfile(flags *globalFlags) (profiles.Profile, error) {
	reg, err := profiles.LoadRegistry(flags.profilesFile)
	if err != nil {
		return profiles.Profile{}, err
	}
	return reg.Resolve(flags.profile)
}

func reportFailure(deps *Deps, flags *globalFlags, profile string, err error) {
	var ce *zosmf.ClassifiedError
	kind := zosmf.KindTransport
	if errors.As(err, &ce) {
		kind = ce.Kind
	}
	hint, hasHint := zosmf.Hint(kind)

	if flags.jsonOutput {
		out := map[string]any{
			"profile": profile,
			"error":   err.Error(),
			"kind":    kind.String(),
		}
		if hasHint {
			out["hint"] = hint.Message
		}
		if ce != nil && ce.StatusCode != 0 {
			out["status_code"] = ce.StatusCode
		}
		printJSON(deps.Out, out)
		return
	}

	errorLabel.Fprintln(deps.Err, err.Error())
	if hasHint {
		fmt.Fprintln(deps.Err, hint.Message)
	}
}

func printInfo(deps *Deps, profile string, info zosmf.StatusResponse) {
	okLabel.Fprintf(deps.Out, "The z/OSMF at profile %q is running.\n", profile)
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := info[k].(type) {
		case string, float64, bool, nil:
			fmt.Fprintf(deps.Out, "%s: %v\n", k, v)
		default:
			fmt.Fprintf(deps.Out, "%s: (%T)\n", k, v)
		}
	}
}
