package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/charette/internal/export"
	"github.com/eldtechnologies/charette/internal/models"
)

var (
	postUser string
	postRole string
	postRoom string
)

var postCmd = &cobra.Command{
	Use:   "post <charette-id> <text...>",
	Short: "Post a message to a room",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := parseRole(postRole)
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		if err := models.ValidateMessage(postUser, text); err != nil {
			return err
		}

		msg, err := connect(role).SendMessage(cmd.Context(), args[0], postRoom, postUser, role, text)
		if err != nil {
			return fmt.Errorf("failed to post message: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderMessage(*msg))
		return nil
	},
}

var (
	historyRoom  string
	historySince int64
)

var historyCmd = &cobra.Command{
	Use:   "history <charette-id>",
	Short: "Print the messages of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgs, err := connect("").ListMessages(cmd.Context(), args[0], historyRoom, historySince)
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(msgs) == 0 {
			fmt.Fprintln(out, dimStyle.Render("No messages yet"))
			return nil
		}
		for _, m := range msgs {
			fmt.Fprintln(out, renderMessage(m))
		}
		return nil
	},
}

var (
	exportFormat string
	exportRoom   string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <charette-id>",
	Short: "Export a charette transcript",
	Long: `Export a charette with the messages of its rooms (json, yaml, md).

By default every room is exported; use --room to export one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		t, err := export.Collect(cmd.Context(), connect(""), args[0], exportRoom)
		if err != nil {
			return fmt.Errorf("failed to collect transcript: %w", err)
		}

		if exportOutput == "" {
			return exporter.Export(t, cmd.OutOrStdout())
		}

		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		if err := exporter.Export(t, f); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", exportOutput, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %s\n", okStyle.Render("✓"), exportOutput)
		return nil
	},
}

func init() {
	postCmd.Flags().StringVarP(&postUser, "user", "u", "", "Your name (required)")
	postCmd.Flags().StringVarP(&postRole, "role", "r", string(models.RoleParticipant), "participant, analyst or project_manager")
	postCmd.Flags().StringVar(&postRoom, "room", models.MainRoom, "Room id")

	historyCmd.Flags().StringVar(&historyRoom, "room", models.MainRoom, "Room id")
	historyCmd.Flags().Int64Var(&historySince, "since", 0, "Only messages after this Unix ms timestamp")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format (json, yaml, md)")
	exportCmd.Flags().StringVar(&exportRoom, "room", "", "Export only this room")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")

	rootCmd.AddCommand(postCmd, historyCmd, exportCmd)
}
