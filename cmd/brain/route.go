package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/misterprompt/brain-ai/internal/cache"
	"github.com/misterprompt/brain-ai/internal/router"
)

var (
	routeSystem      string
	routePrefer      string
	routeMaxTokens   int
	routeTemperature float64
	routeNoCache     bool
	routeSensitive   bool
	routeJSON        bool
	routeExpert      string
	routeSession     string
)

var routeCmd = &cobra.Command{
	Use:   "route <prompt>",
	Short: "Send a prompt through the provider router",
	Long: `Send a single prompt to the first healthy provider.

The preferred provider, when set and eligible, is tried first. The others
follow in priority order; providers that are disabled, over their daily
quota or behind an open breaker are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVarP(&routeSystem, "system", "s", "", "System prompt")
	routeCmd.Flags().StringVarP(&routePrefer, "prefer", "p", "", "Provider to try first")
	routeCmd.Flags().IntVar(&routeMaxTokens, "max-tokens", 1024, "Maximum tokens to generate")
	routeCmd.Flags().Float64Var(&routeTemperature, "temperature", -1, "Sampling temperature (provider default when negative)")
	routeCmd.Flags().BoolVar(&routeNoCache, "no-cache", false, "Skip the response cache")
	routeCmd.Flags().BoolVar(&routeSensitive, "sensitive", false, "Never cache this prompt or its response")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Print the result as JSON")
	routeCmd.Flags().StringVar(&routeExpert, "expert", "", "Cache the answer per expert and session instead of globally")
	routeCmd.Flags().StringVar(&routeSession, "session", "", "Session ID for --expert")
}

func runRoute(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	req := router.Request{
		Prompt:       strings.Join(args, " "),
		SystemPrompt: routeSystem,
		MaxTokens:    routeMaxTokens,
		Preferred:    routePrefer,
		Sensitive:    routeSensitive,
	}
	if routeTemperature >= 0 {
		t := routeTemperature
		req.Temperature = &t
	}
	switch {
	case routeNoCache:
	case routeExpert != "":
		req.CacheNamespace = cache.ExpertNamespace(routeExpert, routeSession)
	default:
		req.CacheNamespace = cache.NamespaceAI
	}

	res, err := a.router.Route(ctx, req)
	if err != nil {
		printRouteFailure(os.Stderr, err)
		return err
	}

	if routeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Println(res.Response)
	fmt.Println()

	meta := fmt.Sprintf("%s · %s", res.Provider, formatMillis(res.ElapsedMs))
	if res.Cached {
		meta += " · cached"
	}
	if res.QuotaRemaining >= 0 {
		meta += fmt.Sprintf(" · %d calls left today", res.QuotaRemaining)
	}
	fmt.Println(dim(meta))

	v := router.ValidateResponse(res.Response, false)
	for _, w := range v.Warnings {
		fmt.Printf("%s %s\n", yellow("!"), w)
	}
	return nil
}
