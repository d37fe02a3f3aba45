package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/client"
	"github.com/claude/wotracker/internal/format"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/timer"
)

var (
	abandonCurrent bool
	setNumber      int
	failed         bool
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	startCmd = &cobra.Command{
		Use:   "start <day>",
		Short: "Start a session for a day of the active plan (name, number or ID)",
		Args:  cobra.ExactArgs(1),
		RunE:  runStart,
	}
	logCmd = &cobra.Command{
		Use:   "log <exercise> <weight> <reps>",
		Short: "Log a set on the active session",
		Args:  cobra.ExactArgs(3),
		RunE:  runLog,
	}
	skipCmd = &cobra.Command{
		Use:   "skip <exercise>",
		Short: "Mark the next set of an exercise as skipped",
		Args:  cobra.ExactArgs(1),
		RunE:  runSkip,
	}
	swapCmd = &cobra.Command{
		Use:   "swap <exercise> <new name>",
		Short: "Replace an exercise in the active session",
		Args:  cobra.ExactArgs(2),
		RunE:  runSwap,
	}
	notesCmd = &cobra.Command{
		Use:   "notes <text>",
		Short: "Set the active session's notes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNotes,
	}
	completeCmd = &cobra.Command{
		Use:   "complete",
		Short: "Complete the active session",
		Args:  cobra.NoArgs,
		RunE:  runFinish(true),
	}
	abandonCmd = &cobra.Command{
		Use:   "abandon",
		Short: "Abandon the active session",
		Args:  cobra.NoArgs,
		RunE:  runFinish(false),
	}
	restCmd = &cobra.Command{
		Use:   "rest [seconds]",
		Short: "Run the rest timer (defaults to the rest setting)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRest,
	}
)

func init() {
	startCmd.Flags().BoolVar(&abandonCurrent, "abandon", false, "abandon the session in progress first")
	logCmd.Flags().IntVar(&setNumber, "set", 0, "set number (defaults to the next one)")
	logCmd.Flags().BoolVar(&failed, "failed", false, "record the set as failed")
	skipCmd.Flags().IntVar(&setNumber, "set", 0, "set number (defaults to the next one)")
}

var errNoSession = errors.New("no active session")

type mutation = client.Mutation[models.Session]

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()
	c := newClient()

	st, err := c.State(ctx)
	if err != nil {
		return err
	}
	if st.ActiveSession == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No active session.")
		return nil
	}
	printSession(cmd.OutOrStdout(), *st.ActiveSession, st.Settings.WeightUnit)
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()
	c := newClient()

	st, err := c.State(ctx)
	if err != nil {
		return err
	}
	day, err := findDay(st, args[0])
	if err != nil {
		return err
	}
	m, err := c.StartSession(ctx, api.StartRequest{DayID: day.ID, AbandonCurrent: abandonCurrent})
	if err != nil {
		return err
	}
	warnUnsynced(cmd.ErrOrStderr(), m.Unsynced)
	printSession(cmd.OutOrStdout(), m.Value, st.Settings.WeightUnit)
	return nil
}

func runLog(cmd *cobra.Command, args []string) error {
	weight, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", "."), 64)
	if err != nil {
		return fmt.Errorf("weight %q: %w", args[1], err)
	}
	reps, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("reps %q: %w", args[2], err)
	}
	status := models.SetCompleted
	if failed {
		status = models.SetFailed
	}
	return recordSet(cmd, args[0], weight, reps, status)
}

func runSkip(cmd *cobra.Command, args []string) error {
	return recordSet(cmd, args[0], 0, 0, models.SetSkipped)
}

func recordSet(cmd *cobra.Command, exercise string, weight float64, reps int, status models.SetStatus) error {
	ctx, cancel := timeout(cmd)
	defer cancel()
	c := newClient()

	st, err := c.State(ctx)
	if err != nil {
		return err
	}
	if st.ActiveSession == nil {
		return errNoSession
	}
	l, err := findLog(*st.ActiveSession, exercise)
	if err != nil {
		return err
	}
	n := setNumber
	if n == 0 {
		n = nextSetNumber(l)
	}

	m, err := c.LogSet(ctx, api.LogSetRequest{
		ExerciseLogID: l.ID,
		SetNumber:     n,
		Weight:        weight,
		Reps:          reps,
		Status:        status,
	})
	if err != nil {
		return err
	}
	warnUnsynced(cmd.ErrOrStderr(), m.Unsynced)

	unit := st.Settings.WeightUnit
	out := cmd.OutOrStdout()
	switch status {
	case models.SetSkipped:
		fmt.Fprintf(out, "%s: %s set skipped\n", l.ExerciseName, format.Ordinal(n))
	default:
		fmt.Fprintf(out, "%s: %s set %s × %d (%s)\n", l.ExerciseName, format.Ordinal(n), format.Weight(weight, unit), reps, status)
	}
	return nil
}

func runSwap(cmd *cobra.Command, args []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()
	c := newClient()

	active, err := c.ActiveSession(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		return errNoSession
	}
	l, err := findLog(*active, args[0])
	if err != nil {
		return err
	}
	m, err := c.SwapExercise(ctx, api.SwapRequest{ExerciseLogID: l.ID, Name: args[1]})
	if err != nil {
		return err
	}
	warnUnsynced(cmd.ErrOrStderr(), m.Unsynced)
	fmt.Fprintf(cmd.OutOrStdout(), "%s → %s\n", l.ExerciseName, args[1])
	return nil
}

func runNotes(cmd *cobra.Command, args []string) error {
	ctx, cancel := timeout(cmd)
	defer cancel()

	m, err := newClient().SetNotes(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	warnUnsynced(cmd.ErrOrStderr(), m.Unsynced)
	fmt.Fprintln(cmd.OutOrStdout(), "Notes saved.")
	return nil
}

func runFinish(complete bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := timeout(cmd)
		defer cancel()
		c := newClient()

		var (
			m   mutation
			err error
		)
		if complete {
			m, err = c.CompleteSession(ctx)
		} else {
			m, err = c.AbandonSession(ctx)
		}
		if err != nil {
			return err
		}
		warnUnsynced(cmd.ErrOrStderr(), m.Unsynced)

		s := m.Value
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s after %s.\n", s.DayName, s.Status, format.SessionDuration(s, time.Now()))
		return nil
	}
}

func runRest(cmd *cobra.Command, args []string) error {
	seconds := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("seconds must be a positive integer, got %q", args[0])
		}
		seconds = n
	} else {
		ctx, cancel := timeout(cmd)
		settings, err := newClient().Settings(ctx)
		cancel()
		if err != nil {
			return err
		}
		seconds = settings.RestTimerDefault
	}

	out := cmd.OutOrStdout()
	done := make(chan struct{})
	total := seconds
	if total <= 0 {
		total = timer.DefaultDuration
	}
	cd := timer.New(seconds,
		timer.WithOnTick(func(remaining int) {
			if remaining > 0 {
				fmt.Fprintf(out, "\rRest %s ", format.Timer(remaining))
			}
		}),
		timer.WithOnFinish(func() {
			fmt.Fprintln(out, "\rRest over.     ")
			close(done)
		}),
	)
	fmt.Fprintf(out, "Rest %s ", format.Timer(total))
	cd.Start()

	select {
	case <-done:
	case <-cmd.Context().Done():
		cd.Stop()
		fmt.Fprintln(out, "\nRest cancelled.")
	}
	return nil
}

// findDay resolves arg against the active plan's days by ID, 1-based
// position or case-insensitive name.
func findDay(st api.State, arg string) (models.Day, error) {
	if st.ActivePlanID == nil {
		return models.Day{}, errors.New("no active plan")
	}
	var plan *models.Plan
	for i := range st.Plans {
		if st.Plans[i].ID == *st.ActivePlanID {
			plan = &st.Plans[i]
			break
		}
	}
	if plan == nil {
		return models.Day{}, errors.New("active plan not found")
	}

	if id, err := uuid.Parse(arg); err == nil {
		for _, d := range plan.Days {
			if d.ID == id {
				return d, nil
			}
		}
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(plan.Days) {
		return plan.Days[n-1], nil
	}
	for _, d := range plan.Days {
		if strings.EqualFold(d.Name, arg) {
			return d, nil
		}
	}
	return models.Day{}, fmt.Errorf("no day %q in %s", arg, plan.Name)
}

// findLog resolves arg against the session's exercises by 1-based position
// or case-insensitive name prefix. An ambiguous prefix is an error.
func findLog(s models.Session, arg string) (models.ExerciseLog, error) {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(s.ExerciseLogs) {
		return s.ExerciseLogs[n-1], nil
	}
	var matches []models.ExerciseLog
	for _, l := range s.ExerciseLogs {
		if strings.EqualFold(l.ExerciseName, arg) {
			return l, nil
		}
		if strings.HasPrefix(strings.ToLower(l.ExerciseName), strings.ToLower(arg)) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return models.ExerciseLog{}, fmt.Errorf("no exercise %q in this session", arg)
	case 1:
		return matches[0], nil
	default:
		return models.ExerciseLog{}, fmt.Errorf("%q matches %d exercises", arg, len(matches))
	}
}

// nextSetNumber is one past the highest logged set number.
func nextSetNumber(l models.ExerciseLog) int {
	n := 0
	for _, s := range l.Sets {
		n = max(n, s.SetNumber)
	}
	return n + 1
}

func printSession(w io.Writer, s models.Session, unit models.WeightUnit) {
	fmt.Fprintf(w, "%s · %s · %s\n", s.PlanName, s.DayName, format.SessionDuration(s, time.Now()))
	for i, l := range s.ExerciseLogs {
		target := format.SetsReps(l.PlannedSets, repsLabel(l))
		if l.TargetWeight != nil {
			target += " @ " + format.Weight(*l.TargetWeight, unit)
		}
		fmt.Fprintf(w, "%d. %s  %s\n", i+1, l.ExerciseName, target)
		for _, set := range l.Sets {
			switch set.Status {
			case models.SetSkipped:
				fmt.Fprintf(w, "     %d  skipped\n", set.SetNumber)
			default:
				fmt.Fprintf(w, "     %d  %s × %d  %s\n", set.SetNumber, format.Weight(set.Weight, unit), set.Reps, set.Status)
			}
		}
	}
	if s.Notes != "" {
		fmt.Fprintf(w, "Notes: %s\n", s.Notes)
	}
}

func repsLabel(l models.ExerciseLog) string {
	if l.RepRange != "" {
		return l.RepRange
	}
	return strconv.Itoa(l.PlannedReps)
}
