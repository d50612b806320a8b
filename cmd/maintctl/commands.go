package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/timmy/linemaint/internal/domain"
)

func newListCmd(a *app) *cobra.Command {
	var status, line string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List failure reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := a.store.List(cmd.Context(), domain.ListFilter{
				Status: domain.ReportStatus(status),
				LineID: line,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, reports)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (open, in_progress, closed)")
	cmd.Flags().StringVar(&line, "line", "", "Filter by production line ID")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID...",
		Short: "Show one or more failure reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			reports, err := a.store.GetMany(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			if len(reports) == 1 {
				return a.print(cmd, reports[0])
			}
			return a.print(cmd, reports)
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var in domain.ReportCreate
	var priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Report a new failure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Priority = domain.Priority(priority)
			report, err := a.store.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.print(cmd, report)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.LineID, "line-id", "", "Production line ID (required)")
	f.StringVar(&in.LineName, "line-name", "", "Production line name")
	f.StringVar(&in.Description, "description", "", "What is wrong (required)")
	f.StringVar(&in.ReportedBy, "reported-by", "", "Line master reporting the failure (required)")
	f.StringVar(&priority, "priority", "", "low, normal, high or urgent (default normal)")
	_ = cmd.MarkFlagRequired("line-id")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("reported-by")
	return cmd
}

func newArrivedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "arrived ID",
		Short: "Record that the technician arrived at the line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.store.MarkWorkerArrived(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, report)
		},
	}
}

func newStartCmd(a *app) *cobra.Command {
	var assignedTo string
	cmd := &cobra.Command{
		Use:   "start ID",
		Short: "Start the repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.StatusInProgress
			u := domain.ReportUpdate{Status: &status}
			if cmd.Flags().Changed("assigned-to") {
				u.AssignedTo = &assignedTo
			}
			report, err := a.store.Update(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			return a.print(cmd, report)
		},
	}
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "Technician working on the repair")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var description, assignedTo, comments, status string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Apply a partial update; only the given flags are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var u domain.ReportUpdate
			if flags.Changed("description") {
				u.Description = &description
			}
			if flags.Changed("assigned-to") {
				u.AssignedTo = &assignedTo
			}
			if flags.Changed("comments") {
				u.Comments = &comments
			}
			if flags.Changed("status") {
				s := domain.ReportStatus(status)
				u.Status = &s
			}
			if u.IsEmpty() {
				return fmt.Errorf("nothing to update: pass at least one of --description, --assigned-to, --comments, --status")
			}
			report, err := a.store.Update(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			return a.print(cmd, report)
		},
	}
	f := cmd.Flags()
	f.StringVar(&description, "description", "", "New description")
	f.StringVar(&assignedTo, "assigned-to", "", "Technician working on the repair")
	f.StringVar(&comments, "comments", "", "Repair notes")
	f.StringVar(&status, "status", "", "open, in_progress or closed")
	return cmd
}

func newCloseCmd(a *app) *cobra.Command {
	var comments string
	cmd := &cobra.Command{
		Use:   "close ID",
		Short: "Close the report; the repair duration is computed. Closing twice fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u domain.ReportUpdate
			if cmd.Flags().Changed("comments") {
				u.Comments = &comments
			}
			report, err := a.store.Close(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			return a.print(cmd, report)
		},
	}
	cmd.Flags().StringVar(&comments, "comments", "", "Closing notes")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload ID FILE",
		Short: "Attach an evidence photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open photo: %w", err)
			}
			defer f.Close()

			report, err := a.store.UploadPhoto(cmd.Context(), args[0], domain.Photo{
				Filename: filepath.Base(args[1]),
				Content:  f,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, report)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a failure report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
