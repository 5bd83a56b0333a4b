package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/helpdesk-io/helpdesk/internal/admin"
	"github.com/helpdesk-io/helpdesk/internal/config"
	"github.com/helpdesk-io/helpdesk/internal/ticket"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// --- tickets ---

func newTicketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List, inspect and triage tickets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tickets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			filter, _ := cmd.Flags().GetString("filter")
			tickets, err := a.Desk.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printTickets(cmd.OutOrStdout(), tickets)
			return nil
		},
	}
	list.Flags().String("filter", ticket.FilterAll, "all, open, in_progress or closed")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ticket as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			t, err := a.Desk.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		},
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Find tickets by name or email",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			tickets, err := a.Desk.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printTickets(cmd.OutOrStdout(), tickets)
			return nil
		},
	}

	cmd.AddCommand(list, show, search,
		newActionCmd(admin.ActionClose, "Close a ticket"),
		newActionCmd(admin.ActionProgress, "Mark a ticket as in progress"),
		newDeleteCmd(),
	)
	return cmd
}

func newActionCmd(action admin.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.Admin.Dispatch(cmd.Context(), action, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ticket (requires --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			if err := a.Desk.Delete(cmd.Context(), args[0], yes); err != nil {
				if !yes {
					return fmt.Errorf("%w (pass --yes to delete)", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ticket #%s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm deletion")
	return cmd
}

func printTickets(w io.Writer, tickets []*protocol.Ticket) {
	if len(tickets) == 0 {
		fmt.Fprintln(w, "no tickets")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tNAME\tEMAIL")
	for _, t := range tickets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.CreatedAt, t.Name, t.Email)
	}
	tw.Flush()
}

// --- stats ---

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ticket counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			st, err := a.Desk.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total:       %d\n", st.Total)
			fmt.Fprintf(out, "open:        %d\n", st.Open)
			fmt.Fprintf(out, "in_progress: %d\n", st.InProgress)
			fmt.Fprintf(out, "closed:      %d\n", st.Closed)
			return nil
		},
	}
}

// --- logs ---

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent event log lines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			lines, err := a.Events.Tail(n)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().IntP("lines", "n", admin.DashboardLogLines, "number of lines")
	return cmd
}

// --- config ---

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <path>",
		Short: "Load and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config OK (tickets: %s)\n", cfg.Desk.TicketsDir)
			return nil
		},
	})
	return cmd
}
