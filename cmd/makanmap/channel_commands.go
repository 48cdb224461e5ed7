package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iconidentify/makanmap/internal/app"
	"github.com/iconidentify/makanmap/internal/domain"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	channelsCmd := &cobra.Command{
		Use:     "channels",
		Aliases: []string{"channel"},
		Short:   "Manage the channels that are synced",
	}

	channelsCmd.AddCommand(newChannelsListCommand(ctx))
	channelsCmd.AddCommand(newChannelsAddCommand(ctx))
	channelsCmd.AddCommand(newChannelsRemoveCommand(ctx))
	return channelsCmd
}

func newChannelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				channels, err := a.Channels.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(channels) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No channels configured")
					return nil
				}
				rows := make([][]string, 0, len(channels))
				for _, ch := range channels {
					rows = append(rows, []string{ch.ID.String(), ch.DisplayName(), ch.ExternalID, ch.CreatedAt.Local().Format("2006-01-02")})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "External ID", "Added"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}

func newChannelsAddCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <channel-id-or-handle>",
		Short: "Add a channel to sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				ch, err := a.Channels.Add(cmd.Context(), args[0], name)
				if errors.Is(err, domain.ErrDuplicateChannel) {
					return fmt.Errorf("channel %s is already configured", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", ch.DisplayName(), ch.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the channel id)")
	return cmd
}

func newChannelsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Stop syncing a channel; its restaurants are kept",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				err := a.Channels.Delete(cmd.Context(), domain.ChannelID(args[0]))
				if errors.Is(err, domain.ErrChannelNotFound) {
					return fmt.Errorf("no channel with id %s", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newSuggestionsCommand(ctx *commandContext) *cobra.Command {
	suggestionsCmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Review suggested channels",
	}

	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *domain.SuggestionStatus
			if status != "" {
				st := domain.SuggestionStatus(status)
				filter = &st
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				list, err := a.Channels.ListSuggestions(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No suggestions")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, s := range list {
					rows = append(rows, []string{s.ID.String(), s.ExternalID, s.Name, string(s.Status), s.Note})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "External ID", "Name", "Status", "Note"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, approved, rejected)")

	approveCmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a suggestion and add its channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				ch, err := a.Channels.ApproveSuggestion(cmd.Context(), domain.SuggestionID(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Approved; channel %s (%s) will be synced\n", ch.DisplayName(), ch.ID)
				return nil
			})
		},
	}

	rejectCmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if _, err := a.Channels.RejectSuggestion(cmd.Context(), domain.SuggestionID(args[0])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s\n", args[0])
				return nil
			})
		},
	}

	suggestionsCmd.AddCommand(listCmd, approveCmd, rejectCmd)
	return suggestionsCmd
}
