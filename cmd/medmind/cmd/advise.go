package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/advice"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/render"
	"github.com/spf13/cobra"
)

var adviseHistoryPath string

var adviseCmd = &cobra.Command{
	Use:   "advise <symptoms>",
	Short: "Ask the AI health assistant about your symptoms",
	Long: `Ask the AI health assistant about your symptoms.

--history takes a JSON file of earlier turns, [{"role":"user","text":"..."},
{"role":"assistant","text":"..."}], which is replayed to the assistant.`,
	Args: cobra.ArbitraryArgs,
	RunE: runAdvise,
}

func init() {
	adviseCmd.Flags().StringVar(&adviseHistoryPath, "history", "", "JSON file with earlier conversation turns")
}

func runAdvise(cmd *cobra.Command, args []string) error {
	out := render.New(cmd.OutOrStdout())
	input := strings.Join(args, " ")
	if strings.TrimSpace(input) == "" {
		return out.EmptyInput()
	}

	history, err := readHistory(adviseHistoryPath)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if cfg.Advice.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Advice.RequestTimeout)
		defer cancel()
	}
	return out.Advice(a.svc.Advise(ctx, analytics.SurfaceCLI, input, history...))
}

func readHistory(path string) ([]advice.Turn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var turns []advice.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	return advice.NormalizeHistory(turns)
}
