package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/interviewkit/chatcore/internal/session"
	"github.com/interviewkit/chatcore/pkg/chat"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <interview-id> <query...>",
		Short: "Search an interview transcript",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			limit, _ := cmd.Flags().GetInt("limit")

			_, logger, client, err := loadEnvironment(cfgPath)
			if err != nil {
				return err
			}

			manager := session.New(client, args[0], session.WithLogger(logger))
			defer manager.Close()

			query := strings.Join(args[1:], " ")
			printMatches(cmd.OutOrStdout(), manager.Search(cmd.Context(), query, limit))
			return nil
		},
	}
	cmd.Flags().Int("limit", 5, "maximum number of matches")
	return cmd
}

// printMatches renders transcript matches, one per line.
func printMatches(out io.Writer, matches []chat.TranscriptMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(out, "no matches")
		return
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%6.1fs-%-6.1fs %s (%.2f): %s\n", m.StartTime, m.EndTime, m.Speaker, m.Score, m.Text)
	}
}
