package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
	"github.com/eldtechnologies/charette/internal/session"
)

var (
	roomsCount     int
	roomsQuestions []string
)

var roomsCmd = &cobra.Command{
	Use:   "rooms <charette-id>",
	Short: "Create breakout rooms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rooms, err := connect("").CreateBreakoutRooms(cmd.Context(), args[0], roomsCount, roomsQuestions)
		if err != nil {
			return fmt.Errorf("failed to create breakout rooms: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Created %d breakout room(s)", len(rooms))))
		for _, r := range rooms {
			fmt.Fprintf(out, "  %s %s\n", titleStyle.Render(r.Name), idStyle.Render(r.ID))
		}
		return nil
	},
}

var phaseRole string

var phaseCmd = &cobra.Command{
	Use:       "phase <charette-id> next|previous",
	Short:     "Move a charette to the next or previous phase",
	Long:      "Move a charette one phase. Only analysts and project managers may change the phase.",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(phase.Next), string(phase.Previous)},
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := phase.ParseDirection(args[1])
		if err != nil {
			return err
		}
		role, err := parseRole(phaseRole)
		if err != nil {
			return err
		}
		if !role.CanFacilitate() {
			return session.ErrNotFacilitator
		}

		current, err := connect(role).AdvancePhase(cmd.Context(), args[0], d)
		if err != nil {
			return fmt.Errorf("failed to change phase: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Phase: %s\n", renderPhase(current))
		return nil
	},
}

func init() {
	roomsCmd.Flags().IntVarP(&roomsCount, "count", "n", 2, fmt.Sprintf("Number of rooms (1-%d)", models.MaxBreakoutRooms))
	roomsCmd.Flags().StringArrayVarP(&roomsQuestions, "question", "q", nil, "Discussion question (repeatable)")

	phaseCmd.Flags().StringVarP(&phaseRole, "role", "r", "", "analyst or project_manager")

	rootCmd.AddCommand(roomsCmd, phaseCmd)
}
