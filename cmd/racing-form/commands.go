package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/racing-form/internal/features"
	"github.com/yourusername/racing-form/internal/health"
	"github.com/yourusername/racing-form/internal/metrics"
	"github.com/yourusername/racing-form/internal/models"
	"github.com/yourusername/racing-form/internal/ratings"
	"github.com/yourusername/racing-form/internal/scheduler"
	"github.com/yourusername/racing-form/internal/settlement"
	"github.com/yourusername/racing-form/internal/simulator"
	"github.com/yourusername/racing-form/internal/table"
)

const commandTimeout = 2 * time.Minute

var errMissingRace = errors.New("--date and --race-id are required without --csv")

func newRacesCmd() *cobra.Command {
	var (
		raceDate string
		csvPath  string
	)
	cmd := &cobra.Command{
		Use:   "races",
		Short: "List the day's races grouped by course",
		Long:  "Lists the races still to run, or every race declared in a CSV export with --csv.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if csvPath != "" {
				races, err := racesFromCSV(csvPath, raceDate)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), races)
			}

			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			races, err := svc.form.GetTodaysRaces(ctx, raceDate)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), races)
		},
	}
	cmd.Flags().StringVar(&raceDate, "date", "", "Race date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read race rows from a CSV file instead of the database")
	return cmd
}

func newFormCmd() *cobra.Command {
	var (
		raceDate string
		raceID   int64
		simulate bool
		csvPath  string
	)
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Build the form for one race",
		Long:  "Builds the race form from the database, or from a CSV export of the race's performance rows with --csv.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if csvPath != "" {
				form, err := formFromCSV(ctx, csvPath, simulate)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), form)
			}

			if raceDate == "" || raceID == 0 {
				return errMissingRace
			}
			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			form, err := svc.form.GetRaceForm(ctx, raceDate, raceID, simulate)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), form)
		},
	}
	cmd.Flags().StringVar(&raceDate, "date", "", "Race date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&raceID, "race-id", 0, "Race id")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Attach Monte-Carlo simulated prices")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read performance rows from a CSV file instead of the database")
	return cmd
}

func newSimulateCmd() *cobra.Command {
	var (
		raceDate string
		raceID   int64
		csvPath  string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a race and print each runner's win percentage and price",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if csvPath != "" {
				records, err := recordsFromCSV(csvPath)
				if err != nil {
					return err
				}
				result, err := newSimulator().Run(ctx, records)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result.Runners)
			}

			if raceDate == "" || raceID == 0 {
				return errMissingRace
			}
			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.form.SimulateRace(ctx, raceDate, raceID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result.Runners)
		},
	}
	cmd.Flags().StringVar(&raceDate, "date", "", "Race date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&raceID, "race-id", 0, "Race id")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read performance rows from a CSV file instead of the database")
	return cmd
}

func newSelectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selections",
		Short: "Manage betting selections",
	}

	var file string
	store := &cobra.Command{
		Use:   "store",
		Short: "Store a race's selections from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read selections: %w", err)
			}
			var selections models.BettingSelections
			if err := json.Unmarshal(data, &selections); err != nil {
				return fmt.Errorf("failed to parse selections: %w", err)
			}

			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			batchID, err := svc.betting.StoreSelections(ctx, &selections)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"batch_id": batchID,
				"message":  fmt.Sprintf("Stored %d selections for race %d", len(selections.Selections), selections.RaceID),
			})
		},
	}
	store.Flags().StringVarP(&file, "file", "f", "", "Selections JSON file")
	_ = store.MarkFlagRequired("file")

	cmd.AddCommand(store)
	return cmd
}

func newSettleCmd() *cobra.Command {
	var (
		csvPath   string
		sessionID int
	)
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settle stored selections and print the report",
		Long:  "Settles the stored selections, or a CSV export of selections joined with results via --csv.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if csvPath != "" {
				report, err := settleCSV(csvPath, sessionID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			}

			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.betting.GetSettlementReport(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read settlement inputs from a CSV file instead of the database")
	cmd.Flags().IntVar(&sessionID, "session", 0, "Current session id when settling a CSV file")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the settlement refresh and race card warm-up jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			sched := scheduler.NewScheduler(svc.betting, svc.form, log)
			if cfg.Scheduler.SettlementRefresh != "" {
				if err := sched.ScheduleSettlementRefresh(cfg.Scheduler.SettlementRefresh); err != nil {
					return err
				}
			}
			if cfg.Scheduler.RaceCacheWarm != "" {
				if err := sched.ScheduleRaceCacheWarm(cfg.Scheduler.RaceCacheWarm); err != nil {
					return err
				}
			}

			if cfg.Metrics.Enabled {
				metrics.InitRegistry()
				srv := health.NewServer(health.Config{
					ServiceName: cfg.App.Name,
					Version:     Version,
					Addr:        fmt.Sprintf(":%d", cfg.Metrics.Port),
					MetricsPath: cfg.Metrics.Path,
					Logger:      log,
					DB:          svc.db,
					Jobs:        sched,
				})
				srv.Start(ctx)
			}

			if err := sched.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
}

func newSimulator() *simulator.Simulator {
	return simulator.NewSimulator(simulator.Config{
		Trials:       cfg.Simulation.Trials,
		Workers:      cfg.Simulation.Workers,
		Seed:         cfg.Simulation.Seed,
		TargetRuns:   cfg.Simulation.TargetRuns,
		PriceCeiling: cfg.Simulation.PriceCeiling,
	}, log)
}

func formOptions() features.FormOptions {
	return features.FormOptions{
		Normalizer: ratings.NewNormalizer(ratings.Config{
			WindowSize:  cfg.Form.WindowSize,
			WindowYears: cfg.Form.WindowYears,
			MinRating:   cfg.Form.MinRating,
		}),
		LookbackWeeks: cfg.Form.LookbackWeeks,
	}
}

func readFrame(path string) (*table.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return table.FromCSV(f)
}

func rowsFromCSV(path string) ([]models.PerformanceRow, error) {
	frame, err := readFrame(path)
	if err != nil {
		return nil, err
	}
	return frame.PerformanceRows()
}

func recordsFromCSV(path string) ([]models.FormRecord, error) {
	rows, err := rowsFromCSV(path)
	if err != nil {
		return nil, err
	}
	records, _, err := features.Prepare(rows, formOptions())
	return records, err
}

func formFromCSV(ctx context.Context, path string, simulate bool) (*models.RaceForm, error) {
	rows, err := rowsFromCSV(path)
	if err != nil {
		return nil, err
	}

	opts := formOptions()
	if simulate {
		opts.Pricer = func(records []models.FormRecord) (map[string]float64, error) {
			result, err := newSimulator().Run(ctx, records)
			if err != nil {
				return nil, err
			}
			return result.Prices(), nil
		}
	}
	return features.BuildRaceForm(rows, opts)
}

// racesFromCSV lists the races of the today rows in a form export. Exports
// are read as captured, so races already run are kept.
func racesFromCSV(path, raceDate string) (models.TodaysRaces, error) {
	frame, err := readFrame(path)
	if err != nil {
		return models.TodaysRaces{}, err
	}
	today := frame.Where("data_type", string(models.DataTypeToday))
	if err := today.Err(); err != nil {
		return models.TodaysRaces{}, fmt.Errorf("failed to select today rows: %w", err)
	}
	if today.Len() == 0 {
		return models.TodaysRaces{}, models.ErrNoTodayRow
	}
	rows, err := today.PerformanceRows()
	if err != nil {
		return models.TodaysRaces{}, err
	}
	return features.GroupRacesByCourse(rows, raceDate, cfg.Form.ExcludedCourses, time.Time{}), nil
}

func settleCSV(path string, sessionID int) (*models.SettlementReport, error) {
	frame, err := readFrame(path)
	if err != nil {
		return nil, err
	}
	inputs, err := frame.SettlementInputs()
	if err != nil {
		return nil, err
	}

	opts := []settlement.Option{settlement.WithLogger(log)}
	if cfg.Betting.LenientStrategies {
		opts = append(opts, settlement.WithLenientStrategies())
	}
	return settlement.NewEngine(sessionID, opts...).Settle(inputs)
}
