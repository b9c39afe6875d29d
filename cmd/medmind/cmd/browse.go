package cmd

import (
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/render"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse [disease]",
	Short: "List catalog diseases, or show one disease's details",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	out := render.New(cmd.OutOrStdout())
	if len(args) == 0 {
		return out.Names(a.svc.Names())
	}
	entry, err := a.svc.Lookup(args[0])
	if err != nil {
		return err
	}
	return out.Disease(entry)
}
