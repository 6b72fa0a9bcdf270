package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/address-geocoder/internal/app"
	"github.com/couchcryptid/address-geocoder/internal/config"
	"github.com/couchcryptid/address-geocoder/internal/domain"
	"github.com/couchcryptid/address-geocoder/internal/observability"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "geocodectl",
		Short: "Resolve Bogotá addresses and manage the geocode cache",
		Long: `
geocodectl normalizes, resolves and autocompletes free-text addresses using the
configured provider and cache backend. Configuration comes from the environment
(GEOAPIFY_API_KEY, CACHE_BACKEND, CACHE_DIR, REDIS_URL, ...).
`,
		SilenceUsage: true,
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persistent geocode cache",
	}
	cacheCmd.AddCommand(newCacheShowCmd(), newCacheClearCmd())

	root.AddCommand(newNormalizeCmd(), newResolveCmd(), newSuggestCmd(), cacheCmd)
	return root
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [address...]",
		Short: "Print the canonical spelling of each address",
		Long: `Normalizes the given addresses, or one address per stdin line when none
are given.

$ echo "cra 7 # 32-16" | geocodectl normalize
cra 7 # 32-16	Carrera 7 Número 32-16
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := argsOrLines(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range addresses {
				fmt.Fprintf(out, "%s\t%s\n", a, domain.Normalize(a))
			}
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [address...]",
		Short: "Resolve addresses to coordinates",
		Long: `Resolves the given addresses, or one address per stdin line when none are
given, and prints one JSON object per address. Unresolved addresses carry
"coordenadas": null.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := argsOrLines(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withComponents(cmd, func(c *app.Components) error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, r := range c.Service.ResolveMany(cmd.Context(), addresses) {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newSuggestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <query>",
		Short: "List autocomplete candidates for a partial address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withComponents(cmd, func(c *app.Components) error {
				out := cmd.OutOrStdout()
				for _, s := range c.Service.Suggest(cmd.Context(), query, limit) {
					fmt.Fprintf(out, "%s\t%s\t%s\n", s.DisplayText, s.Coordinate, s.ResultType)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of suggestions (0 uses the default)")
	return cmd
}

func newCacheShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the live cache entries, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, func(c *app.Components) error {
				entries := c.Cache.Load(cmd.Context())
				addrs := slices.SortedFunc(maps.Keys(entries), func(a, b string) int {
					return entries[a].CreatedAt.Compare(entries[b].CreatedAt)
				})

				out := cmd.OutOrStdout()
				for _, a := range addrs {
					e := entries[a]
					coord := "null"
					if e.Coordinate != nil {
						coord = e.Coordinate.String()
					}
					fmt.Fprintf(out, "%s\t%s\t%s\n", e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), coord, a)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d entries\n", len(entries))
				return nil
			})
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached resolution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, func(c *app.Components) error {
				c.Service.ClearCache(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	}
}

// withComponents loads configuration, wires the service and releases it after fn.
// Logs go to stderr so stdout stays machine-readable.
func withComponents(cmd *cobra.Command, fn func(*app.Components) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel, "text")
	metrics := observability.NewUnregisteredMetrics()

	c, err := app.Build(cmd.Context(), cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}

func argsOrLines(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return lines, nil
}
