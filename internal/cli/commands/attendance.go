package commands

import (
	"fmt"

	"github.com/siteeye/internal/api/client"
	"github.com/spf13/cobra"
)

func NewAttendanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attendance",
		Short:   "Attendance commands",
		Aliases: []string{"att"},
	}

	cmd.AddCommand(newCheckInCommand())
	cmd.AddCommand(newCheckOutCommand())

	return cmd
}

func attendanceFlags(cmd *cobra.Command, projectID, workerID *uint, lat, lon *float64) {
	cmd.Flags().UintVar(projectID, "project", 0, "Project id")
	cmd.Flags().UintVar(workerID, "worker", 0, "Worker id")
	cmd.Flags().Float64Var(lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(lon, "lon", 0, "Longitude")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("worker")
}

func newCheckInCommand() *cobra.Command {
	var (
		projectID, workerID uint
		lat, lon            float64
	)

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Check a worker in to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			record, err := c.CheckIn(projectID, workerID, lat, lon)
			if err != nil {
				return fmt.Errorf("check-in failed: %w", err)
			}

			fmt.Printf("Worker %d checked in to project %d at %s\n",
				record.WorkerID, record.ProjectID, record.CheckInAt.Format("15:04:05"))
			return nil
		},
	}

	attendanceFlags(cmd, &projectID, &workerID, &lat, &lon)
	return cmd
}

func newCheckOutCommand() *cobra.Command {
	var (
		projectID, workerID uint
		lat, lon            float64
	)

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Check a worker out of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			record, err := c.CheckOut(projectID, workerID, lat, lon)
			if err != nil {
				return fmt.Errorf("check-out failed: %w", err)
			}

			fmt.Printf("Worker %d checked out of project %d at %s\n",
				record.WorkerID, record.ProjectID, record.CheckOutAt.Format("15:04:05"))
			return nil
		},
	}

	attendanceFlags(cmd, &projectID, &workerID, &lat, &lon)
	return cmd
}
