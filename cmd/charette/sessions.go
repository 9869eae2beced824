package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/charette/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List charettes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := connect("").ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list charettes: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, headerStyle.Render("No charettes found"))
			return nil
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d charette(s)", len(sessions))))
		for _, s := range sessions {
			fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(s.Title), idStyle.Render(s.ID))
			fmt.Fprintf(out, "  %s  %s\n", renderPhase(s.CurrentPhase),
				dimStyle.Render(fmt.Sprintf("%d participants, %d breakout rooms", len(s.Participants), len(s.BreakoutRooms))))
		}
		return nil
	},
}

var (
	createTitle       string
	createDescription string
	createMeta        models.Metadata
	createBy          string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a charette",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connect("").CreateSession(cmd.Context(), models.SessionFields{
			Title:       createTitle,
			Description: createDescription,
			Metadata:    createMeta,
			CreatedBy:   createBy,
		})
		if err != nil {
			return fmt.Errorf("failed to create charette: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Created charette"))
		fmt.Fprint(cmd.OutOrStdout(), renderSession(sess))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <charette-id>",
	Short: "Show a charette with its participants and rooms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connect("").GetSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get charette: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderSession(sess))
		return nil
	},
}

var (
	joinUser string
	joinRole string
	joinRoom string
)

var joinCmd = &cobra.Command{
	Use:   "join <charette-id>",
	Short: "Register as a participant, optionally entering a breakout room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		role, err := parseRole(joinRole)
		if err != nil {
			return err
		}
		user := strings.TrimSpace(joinUser)
		if user == "" {
			return models.ErrEmptyUserName
		}

		remote := connect(role)
		if err := remote.AddParticipant(ctx, args[0], user, role); err != nil {
			return fmt.Errorf("failed to join charette: %w", err)
		}
		if models.IsBreakout(joinRoom) {
			if err := remote.JoinRoom(ctx, args[0], joinRoom, user); err != nil {
				return fmt.Errorf("failed to join room: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s joined as %s\n", okStyle.Render("✓"), renderUser(user, role), role)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createTitle, "title", "t", "", "Charette title (required)")
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Description")
	createCmd.Flags().StringVar(&createMeta.Scope, "scope", "", "Scope")
	createCmd.Flags().StringVar(&createMeta.Stakeholders, "stakeholders", "", "Stakeholders")
	createCmd.Flags().StringVar(&createMeta.Objectives, "objectives", "", "Objectives")
	createCmd.Flags().StringVar(&createMeta.Constraints, "constraints", "", "Constraints")
	createCmd.Flags().StringVar(&createMeta.Timeframe, "timeframe", "", "Timeframe")
	createCmd.Flags().StringVar(&createMeta.DesiredOutcomes, "outcomes", "", "Desired outcomes")
	createCmd.Flags().IntVar(&createMeta.BreakoutRoomTime, "breakout-minutes", models.DefaultBreakoutMinutes, "Breakout room duration in minutes")
	createCmd.Flags().StringVar(&createBy, "by", "", "Creator name")
	_ = createCmd.MarkFlagRequired("title")

	joinCmd.Flags().StringVarP(&joinUser, "user", "u", "", "Your name (required)")
	joinCmd.Flags().StringVarP(&joinRole, "role", "r", string(models.RoleParticipant), "participant, analyst or project_manager")
	joinCmd.Flags().StringVar(&joinRoom, "room", "", "Breakout room id to enter")
	_ = joinCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(listCmd, createCmd, showCmd, joinCmd)
}
