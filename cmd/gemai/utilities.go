package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gemai/internal/command"
	"gemai/internal/config"
	"gemai/internal/provider"
	"gemai/internal/registry"
	"gemai/internal/stats"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func registerUtilityCommands(root *cobra.Command) {
	root.AddCommand(newCountTokensCommand())
	root.AddCommand(newHistoryCommand())
	root.AddCommand(newStatsCommand())
	root.AddCommand(newModelsCommand())
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the known models with their prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := registry.All()
			ids := make([]string, 0, len(catalog))
			for id := range catalog {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			out := cmd.OutOrStdout()
			current := prefs.CurrentModel("")
			for _, id := range ids {
				m := catalog[id]
				marker := "  "
				if id == current {
					marker = headerStyle.Render("* ")
				}
				line := fmt.Sprintf("%s%-34s %-18s %-8s $%.3f/$%.2f per 1M", marker, id, m.Name, m.Provider, m.PriceInput, m.PriceOutput)
				if m.ThinkingBudget > 0 {
					line += dimStyle.Render(fmt.Sprintf("  (thinking budget %d)", m.ThinkingBudget))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newCountTokensCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "count-tokens [text]",
		Short: command.Get(command.CountTokens).Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readQuery(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := config.Build(command.CountTokens, config.Invocation{Query: text, AttachmentFile: file}, prefs)
			if err != nil {
				return err
			}
			adapter, err := provider.New(cfg)
			if err != nil {
				return err
			}

			att, err := adapter.PrepareAttachment(cmd.Context(), file)
			if err != nil {
				return err
			}
			n, err := adapter.CountTokens(cmd.Context(), cfg, text, att)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tokens (%s)\n", n, cfg.Model.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "include a file in the count")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: command.Get(command.History).Description,
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List past requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "History is empty.")
				return nil
			}
			for _, r := range recs {
				when := time.UnixMilli(r.Timestamp).Format("2006-01-02 15:04")
				fmt.Fprintf(out, "%s  %s  %s  %s\n",
					dimStyle.Render(strconv.FormatInt(r.Timestamp, 10)),
					when, headerStyle.Render(r.ActionID), r.ModelName)
				fmt.Fprintf(out, "    %s\n", truncate(r.Query, 100))
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "max records (0 for all)")

	show := &cobra.Command{
		Use:   "show <timestamp>",
		Short: "Show one request with its full answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("timestamp must be an integer: %w", err)
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(0)
			if err != nil {
				return err
			}
			for _, r := range recs {
				if r.Timestamp != ts {
					continue
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s (%s)\n", headerStyle.Render(r.ActionID), r.ModelName, time.UnixMilli(r.Timestamp).Format(time.RFC1123))
				fmt.Fprintf(out, "%s\n\n", dimStyle.Render("> "+r.Query))

				rendered, err := glamour.Render(r.Answer, "auto")
				if err != nil {
					rendered = r.Answer
				}
				fmt.Fprintln(out, rendered)
				fmt.Fprintf(out, "%s\n", dimStyle.Render(fmt.Sprintf(
					"P:%d + I:%d + T:%d ~ %d tokens; $%.6f; %.1f sec",
					r.PromptTokens, r.InputTokens, r.ThoughtTokens, r.TotalTokens, stats.Cost(r), r.TotalTime)))
				return nil
			}
			return fmt.Errorf("no record with timestamp %d", ts)
		},
	}

	del := &cobra.Command{
		Use:   "delete <timestamp>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("timestamp must be an integer: %w", err)
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Delete(ts)
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Clear()
		},
	}

	cmd.AddCommand(list, show, del, clear)
	return cmd
}

func newStatsCommand() *cobra.Command {
	var byAction, byModel bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: command.Get(command.Stats).Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No usage recorded yet.")
				return nil
			}

			switch {
			case byAction:
				fmt.Fprintln(out, headerStyle.Render("Usage by action"))
				printGroups(cmd, stats.GroupByAction(recs))
			case byModel:
				fmt.Fprintln(out, headerStyle.Render("Usage by model"))
				printGroups(cmd, stats.GroupByModel(recs))
			default:
				for _, w := range stats.Windows(time.Now()) {
					s := stats.Summarize(stats.Filter(recs, w))
					fmt.Fprintf(out, "%-14s %4d requests  %8d tokens  $%.4f\n",
						w.Label, s.Count, s.TotalTokens, s.TotalCost)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&byAction, "by-action", false, "group usage by action")
	cmd.Flags().BoolVar(&byModel, "by-model", false, "group usage by model")
	return cmd
}

func printGroups(cmd *cobra.Command, groups []stats.Group) {
	out := cmd.OutOrStdout()
	for _, g := range groups {
		fmt.Fprintf(out, "%-26s %4d requests  %8d tokens  avg %.0f tok  avg %.1f sec  $%.4f\n",
			g.Key, g.Count, g.TotalTokens, g.AvgTokens, g.AvgTime, g.TotalCost)
	}
}

// truncate shortens to at most n runes, never splitting a UTF-8
// sequence.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
