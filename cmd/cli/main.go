package main

import (
	"fmt"
	"os"

	"github.com/siteeye/internal/cli/commands"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "siteeye",
	Short: "SiteEye CLI - workforce attendance monitoring",
	Long: `SiteEye CLI is a command-line tool for the SiteEye attendance
monitoring backend. It manages alerts and escalations and records
worker check-ins and check-outs.`,
}

func init() {
	rootCmd.AddCommand(commands.NewAlertCommand())
	rootCmd.AddCommand(commands.NewEscalationCommand())
	rootCmd.AddCommand(commands.NewAttendanceCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
