package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/scribe/internal/config"
	"github.com/Iron-Ham/scribe/internal/router"
)

var routeCmd = &cobra.Command{
	Use:   "route <title>",
	Short: "Show how a section title would be routed",
	Long: `Show the importance, model tier, concrete model and token budget the
router assigns to a section title at a given position in the document.

Positions are zero-based; the first three and last two positions are always
routed to a premium tier unless the title is classified as simple.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

var (
	routeIndex int
	routeTotal int
	routePro   bool
)

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().IntVar(&routeIndex, "index", 5, "zero-based section position")
	routeCmd.Flags().IntVar(&routeTotal, "total", 12, "number of sections in the document")
	routeCmd.Flags().BoolVar(&routePro, "pro", false, "pro mode (premium-pro tier for core sections)")
}

func runRoute(cmd *cobra.Command, args []string) error {
	if routeTotal < 1 {
		return fmt.Errorf("--total must be at least 1")
	}
	if routeIndex < 0 || routeIndex >= routeTotal {
		return fmt.Errorf("--index must be between 0 and %d", routeTotal-1)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	writeRoute(cmd.OutOrStdout(), args[0], routeIndex, routeTotal, routePro, cfg.Models)
	return nil
}

func writeRoute(w io.Writer, title string, index, total int, pro bool, models config.ModelsConfig) {
	r := router.Decide(title, index, total, pro)
	rate := router.RateFor(r.Tier)

	fmt.Fprintf(w, "title:       %s\n", title)
	fmt.Fprintf(w, "position:    %d of %d\n", index, total)
	fmt.Fprintf(w, "importance:  %s\n", r.Importance)
	fmt.Fprintf(w, "tier:        %s\n", r.Tier)
	fmt.Fprintf(w, "model:       %s\n", models.TierModels().Resolve(r.Tier))
	fmt.Fprintf(w, "max tokens:  %d\n", r.Budget.MaxOutputTokens)
	fmt.Fprintf(w, "target:      %d chars\n", r.Budget.TargetChars)
	fmt.Fprintf(w, "est. cost:   %s (at budget, 1K input)\n",
		router.FormatCost(router.EstimateCost(r.Tier, 1000, int64(r.Budget.MaxOutputTokens))))
	fmt.Fprintf(w, "rate:        $%.2f in / $%.2f out per 1M tokens\n", rate.InputPerMillion, rate.OutputPerMillion)
}
