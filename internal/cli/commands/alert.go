package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/siteeye/internal/api/client"
	"github.com/spf13/cobra"
)

func NewAlertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Short:   "Alert management commands",
		Aliases: []string{"alerts", "a"},
	}

	cmd.AddCommand(newAlertListCommand())
	cmd.AddCommand(newAlertAcknowledgeCommand())
	cmd.AddCommand(newAlertEscalationsCommand())

	return cmd
}

func newAlertListCommand() *cobra.Command {
	var (
		priority string
		unread   bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List alerts",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			alerts, err := c.ListAlerts(priority, unread)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tPRIORITY\tLEVEL\tREAD\tTIME\tMESSAGE")

			for _, alert := range alerts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%t\t%s\t%s\n",
					alert.ID,
					alert.Type,
					alert.Priority,
					alert.EscalationLevel,
					alert.IsRead,
					alert.Timestamp.Format(time.RFC3339),
					alert.Message,
				)
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority (CRITICAL/WARNING/INFO)")
	cmd.Flags().BoolVar(&unread, "unread", false, "Only show unread alerts")

	return cmd
}

func newAlertAcknowledgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "acknowledge [alert_id]",
		Short:   "Acknowledge an alert, halting any further escalation",
		Aliases: []string{"ack"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			alert, err := c.AcknowledgeAlert(args[0])
			if err != nil {
				return fmt.Errorf("failed to acknowledge alert: %w", err)
			}

			fmt.Printf("Alert %d acknowledged by %s\n", alert.ID, alert.AcknowledgedBy)
			return nil
		},
	}
}

func newAlertEscalationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "escalations [alert_id]",
		Short: "Show the escalation history of an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			events, err := c.ListAlertEscalations(args[0])
			if err != nil {
				return fmt.Errorf("failed to list escalations: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tLEVEL\tTO\tREASON\tRESOLUTION\tTIME")
			for _, event := range events {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
					event.ID,
					event.EscalationLevel,
					event.EscalatedTo,
					event.Reason,
					event.Resolution,
					event.EscalatedAt.Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}
}
