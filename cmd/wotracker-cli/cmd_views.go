package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/wotracker/internal/format"
	"github.com/claude/wotracker/internal/models"
)

var historyStatus string

var (
	dashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Show training totals and recent sessions",
		Args:  cobra.NoArgs,
		RunE:  runDashboard,
	}
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List finished sessions by date",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	progressCmd = &cobra.Command{
		Use:   "progress <exercise>",
		Short: "Show personal best, trend and history for an exercise",
		Args:  cobra.ExactArgs(1),
		RunE:  runProgress,
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Retry writes the server could not persist",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
	signoutCmd = &cobra.Command{
		Use:   "signout",
		Short: "Persist pending writes and drop the server's cached state",
		Args:  cobra.NoArgs,
		RunE:  runSignOut,
	}
)

func init() {
	historyCmd.Flags().StringVar(&historyStatus, "status", "all", "all, completed or abandoned")
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()

	d, err := newClient().Dashboard(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	now := time.Now()
	fmt.Fprintf(out, "%s (%d completed, %d abandoned)\n",
		format.Pluralize(d.TotalWorkouts, "workout", "workouts"), d.Completed, d.Abandoned)
	fmt.Fprintf(out, "This week: %d · Streak: %s · Monthly goal: %d%%\n",
		d.ThisWeek, format.Pluralize(d.Streak, "day", "days"), d.GoalCompletion)
	if len(d.Recent) > 0 {
		fmt.Fprintln(out, "\nRecent:")
		for _, s := range d.Recent {
			fmt.Fprintf(out, "  %-12s %s · %s\n", format.Date(s.StartedAt, now, true), s.DayName, format.SessionDuration(s, now))
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	var status models.SessionStatus
	switch historyStatus {
	case "all", "":
	case string(models.StatusCompleted), string(models.StatusAbandoned):
		status = models.SessionStatus(historyStatus)
	default:
		return fmt.Errorf("unknown status %q", historyStatus)
	}

	ctx, cancel := timeout(cmd)
	defer cancel()
	h, err := newClient().History(ctx, status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	now := time.Now()
	if len(h.Groups) == 0 {
		fmt.Fprintln(out, "No sessions yet.")
		return nil
	}
	for _, g := range h.Groups {
		fmt.Fprintln(out, g.Label)
		for _, s := range g.Sessions {
			fmt.Fprintf(out, "  %s  %s · %s  %s  %s\n",
				format.Time(s.StartedAt), s.PlanName, s.DayName, format.SessionDuration(s, now), s.Status)
		}
	}
	fmt.Fprintf(out, "\n%d completed, %d abandoned\n", h.Completed, h.Abandoned)
	return nil
}

func runProgress(cmd *cobra.Command, args []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()
	c := newClient()

	settings, err := c.Settings(ctx)
	if err != nil {
		return err
	}
	p, err := c.ExerciseProgress(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	unit := settings.WeightUnit
	now := time.Now()
	fmt.Fprintf(out, "%s: %s, trend %s\n", p.Name, format.Pluralize(p.Stats.TotalSessions, "session", "sessions"), p.Stats.Trend)
	if pb := p.Stats.PersonalBest; pb != nil {
		fmt.Fprintf(out, "Personal best: %s × %d (%s)\n", format.Weight(pb.Weight, unit), pb.Reps, format.Date(pb.Date, now, true))
	}
	if p.SuggestedWeight > 0 {
		fmt.Fprintf(out, "Suggested next: %s\n", format.Weight(p.SuggestedWeight, unit))
	}
	for _, h := range p.History {
		fmt.Fprintf(out, "  %-12s", format.Date(h.Date, now, true))
		for _, s := range h.Sets {
			if s.Status == models.SetSkipped {
				continue
			}
			fmt.Fprintf(out, " %s×%d", format.Weight(s.Weight, unit), s.Reps)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()

	res, err := newClient().Sync(ctx)
	if err != nil {
		return err
	}
	if n := res.Unsynced.Total(); n > 0 {
		return fmt.Errorf("%s still unsynced: %s", format.Pluralize(n, "change", "changes"), res.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All changes persisted.")
	return nil
}

func runSignOut(cmd *cobra.Command, _ []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()

	if err := newClient().SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}
