package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-guild/internal/engine"
	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

func newAppsCmd(opts *options) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			snap, err := store.Read()
			if err != nil {
				return err
			}
			out := make([]schema.Application, 0, len(snap.Applications))
			for _, a := range snap.Applications {
				if status == "" || strings.EqualFold(a.Status, status) {
					out = append(out, a)
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only applications with this status")
	return cmd
}

func newTicketsCmd(opts *options) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			snap, err := store.Read()
			if err != nil {
				return err
			}
			out := make([]schema.Ticket, 0, len(snap.Tickets))
			for _, t := range snap.Tickets {
				if status == "" || strings.EqualFold(t.Status, status) {
					out = append(out, t)
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only tickets with this status")
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an application or ticket by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			app, err := store.Application(args[0])
			if err == nil {
				return printJSON(cmd.OutOrStdout(), app)
			}
			if !errors.Is(err, engine.ErrApplicationNotFound) {
				return err
			}
			t, err := store.Ticket(args[0])
			if err != nil {
				if errors.Is(err, engine.ErrTicketNotFound) {
					return fmt.Errorf("no application or ticket with id %q", args[0])
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

func newSettingsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show settings and welcome configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			snap, err := store.Read()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"settings": snap.Settings,
				"welcome":  snap.Welcome,
			})
		},
	}
}
