package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/datastore/pgstore"
	"github.com/2beens/liftlog/internal/gymstats/history"
	"github.com/2beens/liftlog/internal/gymstats/seed"
	"github.com/2beens/liftlog/internal/gymstats/stats"
	"github.com/2beens/liftlog/internal/gymstats/templates"
	"github.com/2beens/liftlog/internal/gymstats/weeks"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	seedWeeks        int
	seedTemplateName string
	seedValue        int64

	generateTemplateID string
	generateWeek       string

	weeklyCount int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pgstore.New(pool, nil).Migrate(cmd.Context()); err != nil {
			return err
		}
		color.Green("✓ schema up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the user's log with demo workouts",
	Long: `Logs a push/pull/legs routine for the last --weeks weeks with weights
rising every week. Days already logged are left alone, so seeding twice is safe.
With --template NAME the routine is also saved as a week template.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, ctx, closeStore, err := openUserStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if seedValue == 0 {
			seedValue = time.Now().UnixNano()
		}
		seeder := seed.New(store, seedValue)

		if seedTemplateName != "" {
			id, err := seeder.Template(ctx, seedTemplateName)
			if err != nil {
				return err
			}
			color.Green("✓ week template %q", seedTemplateName)
			fmt.Printf("  ID: %s\n", id)
		}

		summary, err := seeder.History(ctx, seedWeeks, time.Now())
		if err != nil {
			return err
		}
		color.Green("✓ logged %d workouts, %d sets", summary.Workouts, summary.Sets)
		if summary.Existing > 0 {
			color.Yellow("  %d sessions were already logged", summary.Existing)
		}
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Log a week of workouts from a week template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		weekStart := time.Now()
		if generateWeek != "" {
			parsed, err := time.Parse(time.DateOnly, generateWeek)
			if err != nil {
				return fmt.Errorf("--week: %w", err)
			}
			weekStart = parsed
		}

		store, ctx, closeStore, err := openUserStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		generator := templates.NewGenerator(store, history.NewReader(store), nil)
		report, err := generator.Generate(ctx, generateTemplateID, weekStart)
		if report != nil {
			printReport(report)
		}

		var partial *datastore.PartialWriteError
		if errors.As(err, &partial) {
			color.Red("✗ stopped after %d written rows", partial.Completed)
		}
		return err
	},
}

func printReport(report *templates.Report) {
	faint := color.New(color.Faint)
	fmt.Printf("%s (template %s)\n", weeks.Label(report.WeekStart), report.WeekTemplateID)
	for _, w := range report.Workouts {
		color.Green("✓ %s %-12s %d exercises, %d sets", w.Date.Format(time.DateOnly), w.Title, w.Exercises, w.Sets)
		faint.Printf("  ID: %s\n", w.WorkoutID)
	}
	for _, s := range report.Skipped {
		color.Yellow("- %s %-12s %s", s.Date.Format(time.DateOnly), s.Title, s.Reason)
	}
	faint.Printf("rows written: %d, state: %s\n", report.RowsWritten, report.State)
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Show weekly training volume",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, ctx, closeStore, err := openUserStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		overview, err := stats.NewService(history.NewReader(store)).WeeklyOverview(ctx, weeklyCount, time.Now())
		if err != nil {
			return err
		}

		for _, w := range overview.Weeks {
			fmt.Printf("Week %-3d %s  workouts %-2d sets %-3d exercises %-3d volume %d\n",
				w.WeekNumber, w.WeekStart.Format(time.DateOnly),
				w.Workouts, w.TotalSets, w.TotalExercises, w.TotalVolume)
		}

		if c := overview.Comparison; c != nil {
			change := color.GreenString("%+d", c.VolumeChange)
			if c.VolumeChange < 0 {
				change = color.RedString("%+d", c.VolumeChange)
			}
			fmt.Printf("\nvolume vs previous week: %s (sets %+d, exercises %+d)\n",
				change, c.SetsChange, c.ExercisesChange)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedWeeks, "weeks", 8, "number of past weeks to log")
	seedCmd.Flags().StringVar(&seedTemplateName, "template", "", "also save the routine as a week template with this name")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed (default: time based)")

	generateCmd.Flags().StringVar(&generateTemplateID, "template", "", "week template id")
	generateCmd.Flags().StringVar(&generateWeek, "week", "", "any date of the target week, YYYY-MM-DD (default: today)")
	_ = generateCmd.MarkFlagRequired("template")

	weeklyCmd.Flags().IntVar(&weeklyCount, "weeks", stats.DefaultOverviewWeeks, "number of weeks to summarize")

	rootCmd.AddCommand(migrateCmd, seedCmd, generateCmd, weeklyCmd)
}
