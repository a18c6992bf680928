/*
scheduler.go - Automated payroll month-close scheduler

PURPOSE:
  Periodically closes the previous month for every subject: computes the
  final breakdown, and records a payroll run with the totals in minor units
  and the fingerprint of the inputs they came from. Shifts of a closed
  month can no longer be edited through the API.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only months that have fully ended (in the configured location) close
  - Subjects already closed for the month are skipped
  - Failures are recorded as failed runs and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)
  - Location: Where "the month has ended" is evaluated (default: UTC)

USAGE:
  scheduler := NewPayrollCloseScheduler(store, service, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ClosePayroll endpoint (manual close)
  - payroll/service.go: SubjectPayroll
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/store/sqlite"
)

// CloseSummary reports what one close pass did.
type CloseSummary struct {
	Period  string   `json:"period"`
	Closed  int      `json:"closed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	RunIDs  []string `json:"run_ids"`
}

// PayrollCloseScheduler handles automated month closing.
type PayrollCloseScheduler struct {
	Store         *sqlite.Store
	Service       *payroll.Service
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool
	Location      *time.Location
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPayrollCloseScheduler creates a new scheduler.
func NewPayrollCloseScheduler(store *sqlite.Store, service *payroll.Service, logger *slog.Logger) *PayrollCloseScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollCloseScheduler{
		Store:         store,
		Service:       service,
		Logger:        logger.With(slog.String("component", "payroll-close")),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Location:      time.UTC,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (ps *PayrollCloseScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.Logger.Info("scheduler disabled, not starting")
		return
	}
	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)

	go ps.run(ps.ticker, ps.stop)

	ps.Logger.Info("scheduler started", slog.Duration("interval", ps.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (ps *PayrollCloseScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		ps.Logger.Info("scheduler stopped")
	}
}

func (ps *PayrollCloseScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ps.wg.Done()

	// Run immediately on start
	ps.RunNow()

	for {
		select {
		case <-ticker.C:
			ps.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow closes the previous month right away.
func (ps *PayrollCloseScheduler) RunNow() {
	now := ps.Now().In(ps.Location)
	previous := generic.MonthPeriod(now.Year(), now.Month()).PreviousPeriod()

	summary, err := ps.ClosePeriod(context.Background(), previous)
	if err != nil {
		ps.Logger.Error("month close failed", slog.String("period", previous.Label()), slog.Any("error", err))
		return
	}
	if summary.Closed > 0 || summary.Failed > 0 {
		ps.Logger.Info("month close completed",
			slog.String("period", summary.Period),
			slog.Int("closed", summary.Closed),
			slog.Int("skipped", summary.Skipped),
			slog.Int("failed", summary.Failed))
	}
}

// ClosePeriod closes a period for every subject that is not closed yet.
// The period must have ended.
func (ps *PayrollCloseScheduler) ClosePeriod(ctx context.Context, period generic.Period) (CloseSummary, error) {
	if err := period.Validate(); err != nil {
		return CloseSummary{}, err
	}
	today := generic.DateOf(ps.Now().In(ps.Location))
	if !today.After(period.End) {
		return CloseSummary{}, fmt.Errorf("%w: %s has not ended", generic.ErrInvalidPeriod, period.Label())
	}

	subjects, err := ps.Store.ListSubjects(ctx, "")
	if err != nil {
		return CloseSummary{}, fmt.Errorf("list subjects: %w", err)
	}

	summary := CloseSummary{Period: period.Label(), RunIDs: []string{}}
	for _, subject := range subjects {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		closed, err := ps.Store.IsPeriodClosed(ctx, subject.ID, period)
		if err != nil {
			ps.Logger.Error("checking close status failed", slog.String("subject", string(subject.ID)), slog.Any("error", err))
			summary.Failed++
			continue
		}
		if closed {
			summary.Skipped++
			continue
		}

		run, err := ps.closeSubject(ctx, subject.ID, period)
		summary.RunIDs = append(summary.RunIDs, run.ID)
		if err != nil {
			ps.Logger.Error("closing subject failed",
				slog.String("subject", string(subject.ID)),
				slog.String("period", period.Label()),
				slog.Any("error", err))
			summary.Failed++
			continue
		}
		summary.Closed++
	}
	return summary, nil
}

func (ps *PayrollCloseScheduler) closeSubject(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (payroll.Run, error) {
	run := payroll.Run{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Period:    period,
		StartedAt: ps.Now(),
		Gross:     generic.ZeroMoney(),
		Tax:       generic.ZeroMoney(),
		Net:       generic.ZeroMoney(),
	}

	// Totals and fingerprint come from one snapshot.
	in, err := ps.Service.LoadInput(ctx, subjectID, period)
	if err == nil {
		var b payroll.Breakdown
		b, run.Fingerprint, err = ps.Service.Compute(ctx, in)
		if err == nil {
			run.Gross = b.Gross
			run.Tax = b.Tax
			run.Net = b.Net
			run.Warnings = len(b.Warnings)
		}
	}

	run.CompletedAt = ps.Now()
	run.Status = payroll.RunCompleted
	if err != nil {
		run.Status = payroll.RunFailed
		run.Error = err.Error()
	}

	if saveErr := ps.Store.SavePayrollRun(ctx, run); saveErr != nil {
		return run, fmt.Errorf("failed to save run record: %w", saveErr)
	}
	if err != nil {
		return run, err
	}

	ps.Logger.Info("period closed",
		slog.String("run", run.ID),
		slog.String("subject", string(subjectID)),
		slog.String("period", period.Label()),
		slog.String("gross", run.Gross.String()),
		slog.String("net", run.Net.String()),
		slog.Int("warnings", run.Warnings))
	return run, nil
}
