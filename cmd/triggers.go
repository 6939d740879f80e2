package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bamit99/whatsapp-bot/internal/config"
	"github.com/bamit99/whatsapp-bot/internal/store"
	"github.com/bamit99/whatsapp-bot/internal/store/pg"
	"github.com/bamit99/whatsapp-bot/internal/store/sqlite"
	"github.com/bamit99/whatsapp-bot/internal/triggers"
)

// openStoresFromConfig opens the configured store backend for offline CLI
// operations.
func openStoresFromConfig() (*store.Stores, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.IsManagedMode() {
		return pg.NewStores(cfg.Database.PostgresDSN)
	}
	return sqlite.NewStores(cfg.Database.SQLitePath)
}

func triggersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "Manage auto-response trigger rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := openStoresFromConfig()
			if err != nil {
				return err
			}
			defer stores.Close()

			recs, err := stores.Triggers.ActiveTriggers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list triggers: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEYWORD\tMATCH\tCASE\tRESPONSE")
			for _, rec := range recs {
				caseMode := "fold"
				if rec.CaseSensitive {
					caseMode = "exact"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Keyword, rec.Match, caseMode, rec.Response)
			}
			return w.Flush()
		},
	})

	addCmd := &cobra.Command{
		Use:   "add <keyword> <response>",
		Short: "Add a trigger rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			match, _ := cmd.Flags().GetString("match")
			caseSensitive, _ := cmd.Flags().GetBool("case-sensitive")
			if !triggers.ValidMatchKind(match) {
				return fmt.Errorf("match must be exact, contains, or regex")
			}

			stores, err := openStoresFromConfig()
			if err != nil {
				return err
			}
			defer stores.Close()

			engine, err := triggers.NewEngine(cmd.Context(), stores.Triggers)
			if err != nil {
				return err
			}
			if err := engine.Add(cmd.Context(), args[0], args[1], triggers.MatchKind(match), caseSensitive); err != nil {
				return err
			}
			fmt.Printf("added trigger %q\n", args[0])
			return nil
		},
	}
	addCmd.Flags().String("match", "exact", "match kind: exact, contains, regex")
	addCmd.Flags().Bool("case-sensitive", false, "match case-sensitively")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <keyword>",
		Short: "Remove a trigger rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := openStoresFromConfig()
			if err != nil {
				return err
			}
			defer stores.Close()

			engine, err := triggers.NewEngine(cmd.Context(), stores.Triggers)
			if err != nil {
				return err
			}
			if err := engine.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("removed trigger %q\n", args[0])
			return nil
		},
	})

	return cmd
}
