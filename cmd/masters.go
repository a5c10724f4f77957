// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var mastersCmd = &cobra.Command{
	Use:   "masters",
	Short: "List controllers known to the backend",
	Long: `Fetch the controller list from the backend REST API and print it.

The IP address column is what "anemostat send connect IP" expects.`,
	Args: cobra.NoArgs,
	RunE: runMasters,
}

func init() {
	rootCmd.AddCommand(mastersCmd)
}

func runMasters(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
	defer cancel()

	masters, err := client.Masters(ctx)
	if err != nil {
		return err
	}

	if len(masters) == 0 {
		fmt.Println("No controllers configured")
		return nil
	}
	fmt.Println(renderMastersTable(masters))
	return nil
}

func renderMastersTable(masters []blower.Master) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "NAME", "IP ADDRESS", "PORT", "PLC", "LOCATION")

	for _, m := range masters {
		t.Row(
			strconv.Itoa(m.ID),
			m.Name,
			m.IPAddress,
			strconv.Itoa(m.Port),
			strconv.Itoa(m.PLCID),
			m.Location,
		)
	}
	return t.String()
}
