package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/config"
	"uptime-sim/internal/game"
	"uptime-sim/internal/store"
)

var inspectRaw bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the catalog or saved sessions",
}

var inspectCatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List actions and incidents, including any configured overlay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootConfigPath, rootSchemaPath)
		if err != nil {
			return err
		}
		env, err := cfg.Env()
		if err != nil {
			return err
		}
		printCatalog(cmd.OutOrStdout(), env.Catalog)
		return nil
	},
}

var inspectSlotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List saved slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, closeStore, err := inspectStore()
		if err != nil {
			return err
		}
		defer closeStore()
		slots, err := store.Slots(context.Background(), kv)
		if err != nil {
			return err
		}
		for _, s := range slots {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

var inspectSaveCmd = &cobra.Command{
	Use:   "save <slot>",
	Short: "Summarize a saved slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, closeStore, err := inspectStore()
		if err != nil {
			return err
		}
		defer closeStore()
		st, err := store.LoadGame(context.Background(), kv, args[0])
		if err != nil {
			return err
		}
		if inspectRaw {
			b, err := game.Serialize(st)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}
		printSave(cmd.OutOrStdout(), st)
		return nil
	},
}

func inspectStore() (store.KV, func(), error) {
	cfg, err := config.Load(rootConfigPath, rootSchemaPath)
	if err != nil {
		return nil, nil, err
	}
	return newStore(cfg.Store)
}

func printCatalog(out io.Writer, cat *catalog.Catalog) {
	fmt.Fprintln(out, "Actions:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tCost\tDuration\tCooldown\tTarget\n")
	for _, id := range cat.ActionIDs() {
		a, _ := cat.Action(id)
		fmt.Fprintf(tw, "%s\t%.0f\t%.0fs\t%.0fs\t%s\n", id, a.Cost, a.Duration, a.Cooldown, a.Target)
	}
	tw.Flush()

	fmt.Fprintln(out, "\nIncidents:")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tSeverity\tCategory\tName\n")
	for _, id := range cat.IncidentIDs() {
		d, _ := cat.Incident(id)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, d.Severity, d.Category, d.Name)
	}
	tw.Flush()
}

func printSave(out io.Writer, st *game.State) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Seed:\t%s\n", st.Seed)
	fmt.Fprintf(tw, "Day:\t%d (%.1fh)\n", st.Day, st.Hour)
	fmt.Fprintf(tw, "Elapsed:\t%.0fs\n", st.Elapsed)
	fmt.Fprintf(tw, "Cash:\t%.0f\n", st.Cash)
	fmt.Fprintf(tw, "Users:\t%.0f\n", st.Users)
	fmt.Fprintf(tw, "Reputation:\t%.1f\n", st.Reputation)
	fmt.Fprintf(tw, "Uptime:\t%.2f%%\n", st.Uptime*100)
	if st.GameOver {
		fmt.Fprintf(tw, "Game over:\t%s\n", st.GameOverReason)
	}
	tw.Flush()

	if len(st.Incidents) > 0 {
		fmt.Fprintln(out, "\nIncidents:")
		for _, inc := range st.Incidents {
			fmt.Fprintf(out, "  %s %s %s on %s\n", inc.ID, inc.Severity, inc.Name, inc.Target)
		}
	}
	var features []string
	for f, on := range st.UnlockedFeatures {
		if on {
			features = append(features, f)
		}
	}
	if len(features) > 0 {
		sort.Strings(features)
		fmt.Fprintf(out, "\nUnlocked: %v\n", features)
	}
}

func init() {
	inspectSaveCmd.Flags().BoolVar(&inspectRaw, "json", false, "Print the raw snapshot JSON")
	inspectCmd.AddCommand(inspectCatalogCmd, inspectSlotsCmd, inspectSaveCmd)
}
