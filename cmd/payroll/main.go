/*
main.go - Command-line payroll tool

PURPOSE:
  Computes and exports payroll without running the server. Works either on
  JSON files (config + shifts) or on the server's SQLite database.

COMMANDS:
  compute   Compute one breakdown from a config file and a shifts file
  report    Print payroll tables from the database
  export    Write a PDF payslip or an Excel workbook from the database
  close     Close a finished month for every subject in the database

EXAMPLES:
  payroll compute --config cafe.json --shifts march.json --month 2025-03
  payroll compute --config cafe.json --shifts march.json --holiday 2025-03-01 --json
  payroll report --db payroll.db --month 2025-03
  payroll report --db payroll.db --month 2025-03 --team night-crew
  payroll export --db payroll.db --month 2025-03 --subject cafe --out cafe.pdf
  payroll close --db payroll.db --month 2025-03

SEE ALSO:
  - cmd/server/main.go: HTTP server over the same database
  - report/: Table, PDF and Excel rendering
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/warp/wage-engine/api"
	"github.com/warp/wage-engine/factory"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/store/sqlite"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "payroll: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "payroll",
		Usage:  "compute shift payroll",
		Writer: out,
		Commands: []*cli.Command{
			computeCommand,
			reportCommand,
			exportCommand,
			closeCommand,
		},
	}
}

// =============================================================================
// FLAGS
// =============================================================================

var (
	monthFlag = &cli.StringFlag{Name: "month", Usage: "payroll month (YYYY-MM), default current month"}
	tzFlag    = &cli.StringFlag{Name: "tz", Value: "UTC", Usage: "location for timestamps without an offset"}
	dbFlag    = &cli.StringFlag{Name: "db", Value: "payroll.db", Usage: "SQLite database path", EnvVars: []string{"DB_PATH"}}
)

// =============================================================================
// COMMANDS
// =============================================================================

var computeCommand = &cli.Command{
	Name:  "compute",
	Usage: "compute a breakdown from JSON files",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Required: true, Usage: "employment config JSON file"},
		&cli.StringFlag{Name: "shifts", Required: true, Usage: "shifts JSON file (array)"},
		&cli.StringFlag{Name: "name", Usage: "display name"},
		&cli.StringSliceFlag{Name: "holiday", Usage: "public holiday date (YYYY-MM-DD), repeatable"},
		&cli.BoolFlag{Name: "json", Usage: "print the breakdown as JSON"},
		monthFlag,
		tzFlag,
	},
	Action: func(c *cli.Context) error {
		loc, err := time.LoadLocation(c.String("tz"))
		if err != nil {
			return fmt.Errorf("invalid --tz: %w", err)
		}
		period, err := resolveMonth(c.String("month"), loc)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(c.String("config"))
		if err != nil {
			return err
		}
		cfg, err := factory.ParseConfig(data)
		if err != nil {
			return err
		}
		data, err = os.ReadFile(c.String("shifts"))
		if err != nil {
			return err
		}
		shifts, err := factory.NewShiftParser(loc).ParseShifts(data)
		if err != nil {
			return err
		}

		calendar := &generic.StaticHolidayCalendar{}
		for _, d := range c.StringSlice("holiday") {
			date, err := generic.ParseDate(d)
			if err != nil {
				return fmt.Errorf("invalid --holiday %q: %w", d, err)
			}
			calendar.Holidays = append(calendar.Holidays, generic.Holiday{ID: d, Date: date, Name: d})
		}

		subjectID := strings.TrimSuffix(filepath.Base(c.String("config")), filepath.Ext(c.String("config")))
		b, err := payroll.NewAggregator(calendar).Compute(payroll.Input{
			SubjectID: generic.SubjectID(subjectID),
			Period:    period,
			Config:    cfg,
			Shifts:    shifts,
		})
		if err != nil {
			return err
		}

		if c.Bool("json") {
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		}
		report.WriteTable(c.App.Writer, report.Meta{Name: c.String("name")}, b)
		printWarnings(c.App.Writer, b)
		return nil
	},
}

var reportCommand = &cli.Command{
	Name:  "report",
	Usage: "print payroll tables from the database",
	Flags: []cli.Flag{
		dbFlag,
		monthFlag,
		tzFlag,
		&cli.StringFlag{Name: "subject", Usage: "one subject's detailed breakdown"},
		&cli.StringFlag{Name: "team", Usage: "a team's members and total"},
	},
	Action: func(c *cli.Context) error {
		env, err := openEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()

		if id := c.String("subject"); id != "" {
			subject, b, err := env.subjectPayroll(c.Context, generic.SubjectID(id))
			if err != nil {
				return err
			}
			report.WriteTable(c.App.Writer, report.Meta{Name: subject.Name, Color: subject.Color}, b)
			printWarnings(c.App.Writer, b)
			return nil
		}

		entries, total, err := env.groupPayroll(c.Context, c.String("team"))
		if err != nil {
			return err
		}
		report.WriteSummaryTable(c.App.Writer, entries, total)
		return nil
	},
}

var exportCommand = &cli.Command{
	Name:  "export",
	Usage: "write a PDF payslip or an Excel workbook",
	Flags: []cli.Flag{
		dbFlag,
		monthFlag,
		tzFlag,
		&cli.StringFlag{Name: "subject", Usage: "subject to export (PDF or Excel)"},
		&cli.StringFlag{Name: "team", Usage: "team to export (Excel only)"},
		&cli.StringFlag{Name: "out", Required: true, Usage: "output file; .pdf or .xlsx"},
	},
	Action: func(c *cli.Context) error {
		env, err := openEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()

		out := c.String("out")
		ext := strings.ToLower(filepath.Ext(out))

		var entries []report.Entry
		if id := c.String("subject"); id != "" {
			subject, b, err := env.subjectPayroll(c.Context, generic.SubjectID(id))
			if err != nil {
				return err
			}
			entries = []report.Entry{{Meta: report.Meta{Name: subject.Name, Color: subject.Color}, Breakdown: b}}
		} else {
			if ext == ".pdf" {
				return fmt.Errorf("a PDF payslip needs --subject")
			}
			if entries, _, err = env.groupPayroll(c.Context, c.String("team")); err != nil {
				return err
			}
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		switch ext {
		case ".pdf":
			err = report.WritePayslip(f, entries[0].Meta, entries[0].Breakdown)
		case ".xlsx":
			err = report.WriteWorkbook(f, entries)
		default:
			err = fmt.Errorf("unsupported output %q: use .pdf or .xlsx", ext)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %s\n", out)
		return nil
	},
}

var closeCommand = &cli.Command{
	Name:  "close",
	Usage: "close a finished month for every subject",
	Flags: []cli.Flag{dbFlag, tzFlag, &cli.StringFlag{Name: "month", Required: true, Usage: "month to close (YYYY-MM)"}},
	Action: func(c *cli.Context) error {
		env, err := openEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()

		closer := api.NewPayrollCloseScheduler(env.store, env.service, env.logger)
		closer.Location = env.location
		summary, err := closer.ClosePeriod(c.Context, env.period)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: closed %d, skipped %d, failed %d\n",
			summary.Period, summary.Closed, summary.Skipped, summary.Failed)
		if summary.Failed > 0 {
			return fmt.Errorf("%d subjects failed to close", summary.Failed)
		}
		return nil
	},
}

// =============================================================================
// DATABASE ENVIRONMENT
// =============================================================================

type dbEnv struct {
	store    *sqlite.Store
	service  *payroll.Service
	logger   *slog.Logger
	location *time.Location
	period   generic.Period
}

func openEnv(c *cli.Context) (*dbEnv, error) {
	loc, err := time.LoadLocation(c.String("tz"))
	if err != nil {
		return nil, fmt.Errorf("invalid --tz: %w", err)
	}
	period, err := resolveMonth(c.String("month"), loc)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.New(c.String("db"))
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return &dbEnv{
		store:    store,
		service:  payroll.NewService(store, store, nil, payroll.NewAggregator(store), logger),
		logger:   logger,
		location: loc,
		period:   period,
	}, nil
}

func (e *dbEnv) Close() error {
	return e.store.Close()
}

func (e *dbEnv) subjectPayroll(ctx context.Context, id generic.SubjectID) (*payroll.Subject, payroll.Breakdown, error) {
	subject, err := e.store.GetSubject(ctx, id)
	if err != nil {
		return nil, payroll.Breakdown{}, err
	}
	b, err := e.service.SubjectPayroll(ctx, id, e.period)
	if err != nil {
		return nil, payroll.Breakdown{}, err
	}
	return subject, b, nil
}

// groupPayroll sums a team, or every workplace when team is empty.
func (e *dbEnv) groupPayroll(ctx context.Context, team string) ([]report.Entry, payroll.Breakdown, error) {
	var (
		subjects []payroll.Subject
		err      error
		groupID  = generic.SubjectID("personal")
	)
	if team != "" {
		subjects, err = e.store.ListSubjectsByTeam(ctx, generic.TeamID(team))
		groupID = generic.SubjectID(team)
	} else {
		subjects, err = e.store.ListSubjects(ctx, payroll.SubjectWorkplace)
	}
	if err != nil {
		return nil, payroll.Breakdown{}, err
	}

	ids := make([]generic.SubjectID, len(subjects))
	for i, s := range subjects {
		ids[i] = s.ID
	}
	total, parts, err := e.service.GroupPayroll(ctx, groupID, ids, e.period)
	if err != nil {
		return nil, payroll.Breakdown{}, err
	}

	entries := make([]report.Entry, len(parts))
	for i, b := range parts {
		entries[i] = report.Entry{Meta: report.Meta{Name: subjects[i].Name, Color: subjects[i].Color}, Breakdown: b}
	}
	return entries, total, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func resolveMonth(month string, loc *time.Location) (generic.Period, error) {
	if month == "" {
		now := time.Now().In(loc)
		return generic.MonthPeriod(now.Year(), now.Month()), nil
	}
	return generic.ParseMonth(month)
}

func printWarnings(w io.Writer, b payroll.Breakdown) {
	for _, warn := range b.Warnings {
		fmt.Fprintf(w, "warning: %v\n", warn)
	}
}
