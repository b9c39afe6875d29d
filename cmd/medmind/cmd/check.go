package cmd

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/render"
	"github.com/spf13/cobra"
)

var checkTopN int

var checkCmd = &cobra.Command{
	Use:   "check <symptoms>",
	Short: "Rank likely diseases for a comma-separated symptom list",
	Example: `  medmind check "fever, cough, headache"
  medmind check --top 3 "chills,fever"`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkTopN, "top", "n", 0, "maximum results to show (default from config)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := render.New(cmd.OutOrStdout())
	input := strings.Join(args, " ")
	if strings.TrimSpace(input) == "" {
		return out.EmptyInput()
	}

	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.Check(cmd.Context(), analytics.SurfaceCLI, input, checkTopN)
	if err != nil {
		return err
	}
	return out.Report(report)
}
