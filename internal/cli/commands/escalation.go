package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/siteeye/internal/api/client"
	"github.com/spf13/cobra"
)

func NewEscalationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "escalation",
		Short:   "Escalation management commands",
		Aliases: []string{"escalations", "esc"},
	}

	cmd.AddCommand(newEscalationListCommand())
	cmd.AddCommand(newEscalationAcknowledgeCommand())
	cmd.AddCommand(newEscalationResolveCommand())

	return cmd
}

func newEscalationListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List escalation events",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			events, err := c.ListEscalations()
			if err != nil {
				return fmt.Errorf("failed to list escalations: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tALERT\tLEVEL\tTO\tACKED\tRESOLUTION\tTIME")
			for _, event := range events {
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%t\t%s\t%s\n",
					event.ID,
					event.AlertID,
					event.EscalationLevel,
					event.EscalatedTo,
					event.Acknowledged,
					event.Resolution,
					event.EscalatedAt.Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}
}

func newEscalationAcknowledgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "acknowledge [escalation_id]",
		Short:   "Acknowledge an escalation event",
		Aliases: []string{"ack"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			event, err := c.AcknowledgeEscalation(args[0])
			if err != nil {
				return fmt.Errorf("failed to acknowledge escalation: %w", err)
			}

			fmt.Printf("Escalation %d acknowledged\n", event.ID)
			return nil
		},
	}
}

func newEscalationResolveCommand() *cobra.Command {
	var resolution string

	cmd := &cobra.Command{
		Use:   "resolve [escalation_id]",
		Short: "Set the resolution of an escalation event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			event, err := c.ResolveEscalation(args[0], resolution)
			if err != nil {
				return fmt.Errorf("failed to resolve escalation: %w", err)
			}

			fmt.Printf("Escalation %d marked %s\n", event.ID, event.Resolution)
			return nil
		},
	}

	cmd.Flags().StringVar(&resolution, "resolution", "RESOLVED", "Resolution (RESOLVED/FORWARDED/DISMISSED)")
	return cmd
}
