package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// SERVICE - Store-backed payroll queries
// =============================================================================

// Service loads a snapshot from the stores, computes, and memoizes results
// keyed by the input fingerprint. Cache is optional; cache failures are
// logged and never fail a query.
type Service struct {
	Subjects   SubjectStore
	Shifts     ShiftStore
	Cache      Cache
	Aggregator *Aggregator
	Workers    int
	Logger     *slog.Logger
}

// TeamBreakdown is a team total plus the per-member breakdowns it sums.
type TeamBreakdown struct {
	TeamID  generic.TeamID
	Total   Breakdown
	Members []Breakdown
}

func NewService(subjects SubjectStore, shifts ShiftStore, cache Cache, agg *Aggregator, logger *slog.Logger) *Service {
	if agg == nil {
		agg = NewAggregator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Subjects:   subjects,
		Shifts:     shifts,
		Cache:      cache,
		Aggregator: agg,
		Logger:     logger,
	}
}

// LoadInput gathers the subject's config and its shifts starting inside
// the period.
func (s *Service) LoadInput(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (Input, error) {
	if err := period.Validate(); err != nil {
		return Input{}, err
	}
	subject, err := s.Subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return Input{}, fmt.Errorf("load subject %s: %w", subjectID, err)
	}
	shifts, err := s.Shifts.ListShifts(ctx, subjectID, period.Start, period.End)
	if err != nil {
		return Input{}, fmt.Errorf("load shifts of %s: %w", subjectID, err)
	}
	return Input{
		SubjectID: subjectID,
		Period:    period,
		Config:    subject.Config,
		Shifts:    shifts,
	}, nil
}

// SubjectPayroll returns the breakdown of one subject for one period.
func (s *Service) SubjectPayroll(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (Breakdown, error) {
	in, err := s.LoadInput(ctx, subjectID, period)
	if err != nil {
		return Breakdown{}, err
	}
	b, _, err := s.Compute(ctx, in)
	return b, err
}

// Compute returns the breakdown of an already loaded snapshot together with
// its fingerprint, going through the cache like SubjectPayroll.
func (s *Service) Compute(ctx context.Context, in Input) (Breakdown, string, error) {
	fingerprint := Fingerprint(in)
	if b, ok := s.cached(ctx, in, fingerprint); ok {
		return b, fingerprint, nil
	}

	b, err := s.Aggregator.Compute(in)
	if err != nil {
		return Breakdown{}, "", err
	}
	s.store(ctx, b, fingerprint)
	s.logWarnings(b)
	return b, fingerprint, nil
}

// TeamPayroll computes every member of a team on the worker pool and sums
// them. Members come back in ID order.
func (s *Service) TeamPayroll(ctx context.Context, team generic.TeamID, period generic.Period) (TeamBreakdown, error) {
	if err := period.Validate(); err != nil {
		return TeamBreakdown{}, err
	}
	members, err := s.Subjects.ListSubjectsByTeam(ctx, team)
	if err != nil {
		return TeamBreakdown{}, fmt.Errorf("list team %s: %w", team, err)
	}
	ids := make([]generic.SubjectID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	total, results, err := s.GroupPayroll(ctx, generic.SubjectID(team), ids, period)
	if err != nil {
		return TeamBreakdown{}, err
	}
	return TeamBreakdown{TeamID: team, Total: total, Members: results}, nil
}

// GroupPayroll computes several subjects for the same period and sums them
// under groupID. Cached subjects are served from the cache; the rest go
// through Batch. Results keep the order of ids.
func (s *Service) GroupPayroll(ctx context.Context, groupID generic.SubjectID, ids []generic.SubjectID, period generic.Period) (Breakdown, []Breakdown, error) {
	if err := period.Validate(); err != nil {
		return Breakdown{}, nil, err
	}

	results := make([]Breakdown, len(ids))
	fingerprints := make([]string, len(ids))
	var misses []Input
	var missIdx []int
	for i, id := range ids {
		in, err := s.LoadInput(ctx, id, period)
		if err != nil {
			return Breakdown{}, nil, err
		}
		fingerprints[i] = Fingerprint(in)
		if b, ok := s.cached(ctx, in, fingerprints[i]); ok {
			results[i] = b
			continue
		}
		misses = append(misses, in)
		missIdx = append(missIdx, i)
	}

	computed, err := Batch(ctx, s.Aggregator, misses, s.Workers)
	if err != nil {
		return Breakdown{}, nil, err
	}
	for j, b := range computed {
		i := missIdx[j]
		results[i] = b
		s.store(ctx, b, fingerprints[i])
		s.logWarnings(b)
	}

	s.Logger.Debug("group payroll computed",
		slog.String("group", string(groupID)),
		slog.String("period", period.Key()),
		slog.Int("subjects", len(ids)),
		slog.Int("cache_misses", len(misses)))

	return Sum(groupID, period, results), results, nil
}

func (s *Service) cached(ctx context.Context, in Input, fingerprint string) (Breakdown, bool) {
	if s.Cache == nil {
		return Breakdown{}, false
	}
	b, err := s.Cache.Get(ctx, in.SubjectID, in.Period, fingerprint)
	if err != nil {
		if !errors.Is(err, generic.ErrCacheMiss) {
			s.Logger.Warn("payroll cache read failed", slog.String("subject", string(in.SubjectID)), slog.Any("error", err))
		}
		return Breakdown{}, false
	}
	return b, true
}

func (s *Service) store(ctx context.Context, b Breakdown, fingerprint string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Put(ctx, b, fingerprint); err != nil {
		s.Logger.Warn("payroll cache write failed", slog.String("subject", string(b.SubjectID)), slog.Any("error", err))
	}
}

func (s *Service) logWarnings(b Breakdown) {
	for _, w := range b.Warnings {
		s.Logger.Info("shift excluded from payroll",
			slog.String("subject", string(b.SubjectID)),
			slog.String("period", b.Period.Key()),
			slog.String("shift", string(w.ShiftID)),
			slog.String("code", w.Code()))
	}
}
