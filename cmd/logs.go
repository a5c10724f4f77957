// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/Thermoquad/anemostat/pkg/api"
	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/logquery"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show one page of the temperature history",
	Long: `Fetch one page of historical temperature records from the backend.

Pages are numbered from 1 and hold 10 records. --date restricts the history to
one calendar day (YYYY-MM-DD). A page past the end is moved back to the last
page that exists.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsPage int
	logsDate string
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsPage, "page", "n", 1, "Page number, starting at 1")
	logsCmd.Flags().StringVarP(&logsDate, "date", "d", "", "Only records from this day (YYYY-MM-DD)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsPage < 1 {
		return fmt.Errorf("--page must be at least 1, got %d", logsPage)
	}
	date, err := logquery.ParseDate(logsDate)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := OpenAPIClient(cfg, log)
	if err != nil {
		return err
	}

	coord := logquery.New()
	if !date.IsZero() {
		coord.SetDateFilter(date)
	}
	coord.SetPage(logsPage - 1)

	if err := fetchLogPage(cmd.Context(), client, coord); err != nil {
		return err
	}

	if len(coord.Rows()) == 0 {
		fmt.Println("No temperature records")
	} else {
		fmt.Println(renderLogTable(coord.Rows()))
	}
	fmt.Printf("%s (%d records)\n", coord.Label(), coord.TotalItems())
	return nil
}

// fetchLogPage loads the coordinator's current query, following one clamp
// when the requested page is past the end.
func fetchLogPage(ctx context.Context, client *api.Client, coord *logquery.Coordinator) error {
	for attempt := 0; attempt < 2; attempt++ {
		q := coord.CurrentQuery()
		page, err := client.TemperatureLogs(ctx, q)
		if err != nil {
			return err
		}
		if coord.Apply(q, page) != logquery.Clamped {
			return nil
		}
	}
	return nil
}

func renderLogTable(rows []blower.TemperatureLogRow) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "TIME", "TEMPERATURE", "DEVICE", "MASTER", "LOCATION")

	for _, r := range rows {
		t.Row(
			strconv.FormatInt(r.ID, 10),
			r.Timestamp.String(),
			blower.FormatTemperature(r.Value),
			r.DeviceName,
			r.MasterName,
			r.MasterLocation,
		)
	}
	return t.String()
}
