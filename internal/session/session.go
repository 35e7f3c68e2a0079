package session

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"metrolog/internal/aggregate"
	"metrolog/internal/compare"
	apierrors "metrolog/internal/errors"
	"metrolog/internal/measurement"
	"metrolog/internal/registry"
	"metrolog/internal/stats"
	"metrolog/pkg/contracts/domain"
)

// Settings are the analysis defaults applied by a session.
type Settings struct {
	SlotCount int
	Bounds    stats.BoundsPolicy
	Compare   compare.Options
}

// IngestResult describes a successfully loaded table.
type IngestResult struct {
	Layout     domain.Layout `json:"layout"`
	Rows       int           `json:"rows"`
	Dimensions []string      `json:"dimensions"`
	Orders     []string      `json:"orders"`
	// Created lists dimensions the registry saw for the first time.
	Created []string `json:"created"`
}

// Info is a point-in-time description of a session.
type Info struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	LastUsed   time.Time     `json:"last_used"`
	Layout     domain.Layout `json:"layout,omitempty"`
	Rows       int           `json:"rows"`
	Dimensions int           `json:"dimensions"`
	Orders     []string      `json:"orders"`
	Groups     int           `json:"groups"`
}

// Session is one operator's analysis workspace. It is safe for concurrent
// use; mutations are serialised.
type Session struct {
	id        string
	createdAt time.Time
	lastUsed  atomic.Int64
	settings  Settings

	mu       sync.RWMutex
	registry *registry.Registry
	table    *measurement.Table
}

// New creates an empty session.
func New(id string, settings Settings, now time.Time) *Session {
	s := &Session{
		id:        id,
		createdAt: now,
		settings:  settings,
		registry:  registry.New(),
	}
	s.touch(now)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Settings returns the analysis defaults of the session.
func (s *Session) Settings() Settings { return s.settings }

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

// LastUsed returns when the session was last looked up.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// Info describes the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:        s.id,
		CreatedAt: s.createdAt,
		LastUsed:  s.LastUsed(),
		Orders:    []string{},
		Groups:    len(s.registry.Groups()),
	}
	if s.table != nil {
		info.Layout = s.table.Layout
		info.Rows = s.table.Len()
		info.Dimensions = len(s.table.DimensionNames())
		info.Orders = s.table.Orders()
	}
	return info
}

// Ingest parses text and, on success, replaces the current table and
// registers its dimensions. A failed parse leaves the session unchanged.
func (s *Session) Ingest(ctx context.Context, text string) (IngestResult, error) {
	table, err := measurement.Parse(ctx, text)
	if err != nil {
		return IngestResult{}, err
	}
	return s.load(table), nil
}

// IngestDelimited is Ingest for a delimited export whose separator is
// detected from its first line.
func (s *Session) IngestDelimited(ctx context.Context, text string) (IngestResult, error) {
	table, err := measurement.ParseDelimited(ctx, text, measurement.DetectDelimiter(text))
	if err != nil {
		return IngestResult{}, err
	}
	return s.load(table), nil
}

// IngestWorkbook is Ingest for the first sheet of an .xlsx workbook.
func (s *Session) IngestWorkbook(ctx context.Context, r io.Reader) (IngestResult, error) {
	table, err := measurement.ParseWorkbook(ctx, r)
	if err != nil {
		return IngestResult{}, err
	}
	return s.load(table), nil
}

func (s *Session) load(table *measurement.Table) IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := table.DimensionNames()
	created := s.registry.EnsureAll(names)
	s.table = table
	return IngestResult{
		Layout:     table.Layout,
		Rows:       table.Len(),
		Dimensions: names,
		Orders:     table.Orders(),
		Created:    created,
	}
}

// Table returns a copy of the current table.
func (s *Session) Table() (*measurement.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, apierrors.ErrNoMeasurements
	}
	return s.table.Clone(), nil
}

// Measurements returns the current rows, restricted to order when set.
func (s *Session) Measurements(order *string) ([]domain.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, apierrors.ErrNoMeasurements
	}
	return s.table.FilterOrder(order), nil
}

// Summaries computes the statistics of the current table. An empty bounds
// policy falls back to the session default.
func (s *Session) Summaries(opts stats.Options) ([]domain.StatSummary, error) {
	rows, err := s.Measurements(nil)
	if err != nil {
		return nil, err
	}
	if opts.Bounds == "" {
		opts.Bounds = s.settings.Bounds
	}
	return stats.Summarize(rows, opts)
}

// SummariesByOrder computes one summary per dimension and order.
func (s *Session) SummariesByOrder(bounds stats.BoundsPolicy) ([]domain.StatSummary, error) {
	rows, err := s.Measurements(nil)
	if err != nil {
		return nil, err
	}
	if bounds == "" {
		bounds = s.settings.Bounds
	}
	return stats.SummarizeByOrder(rows, bounds)
}

// rowsAndProfiles reads a consistent view of the table and the registry.
func (s *Session) rowsAndProfiles(order *string) ([]domain.Measurement, map[string]domain.DimensionProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, nil, apierrors.ErrNoMeasurements
	}
	return s.table.FilterOrder(order), s.registry.Profiles(), nil
}

func (s *Session) aggregateOptions(order *string) aggregate.Options {
	return aggregate.Options{Order: order, SlotCount: s.settings.SlotCount}
}

// Angular aggregates the current table by angular position.
func (s *Session) Angular(order *string) (domain.AngularAggregate, error) {
	rows, profiles, err := s.rowsAndProfiles(order)
	if err != nil {
		return domain.AngularAggregate{}, err
	}
	return aggregate.Angular(rows, profiles, s.aggregateOptions(nil)), nil
}

// Deviations returns the deviation of every placed dimension at angle.
func (s *Session) Deviations(angle float64, order *string) ([]domain.DeviationPoint, error) {
	agg, err := s.Angular(order)
	if err != nil {
		return nil, err
	}
	return aggregate.Deviations(agg, angle), nil
}

// Positional aggregates the current table along the part axis.
func (s *Session) Positional(order *string) ([]domain.PositionalSeries, error) {
	rows, profiles, err := s.rowsAndProfiles(order)
	if err != nil {
		return nil, err
	}
	return aggregate.Positional(rows, profiles, s.aggregateOptions(nil)), nil
}

// GroupRadar builds the radar of one profile group at angle.
func (s *Session) GroupRadar(groupID int, angle float64, order *string) (domain.RadarResult, error) {
	s.mu.RLock()
	if s.table == nil {
		s.mu.RUnlock()
		return domain.RadarResult{}, apierrors.ErrNoMeasurements
	}
	group, err := s.registry.Group(groupID)
	if err != nil {
		s.mu.RUnlock()
		return domain.RadarResult{}, err
	}
	rows := s.table.FilterOrder(order)
	profiles := s.registry.Profiles()
	s.mu.RUnlock()

	agg := aggregate.Angular(rows, profiles, s.aggregateOptions(nil))
	return aggregate.GroupRadar(group, profiles, agg, angle)
}

// Profiles returns the registry sorted by dimension name.
func (s *Session) Profiles() []domain.DimensionProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Snapshot()
}

// Profile returns one registry entry.
func (s *Session) Profile(name string) (domain.DimensionProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Get(name)
}

// UpdateProfile applies an operator edit to one dimension.
func (s *Session) UpdateProfile(name string, u registry.ProfileUpdate) (domain.DimensionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Update(name, u)
}

// SetAngular sets or clears the angular position of one dimension.
func (s *Session) SetAngular(name string, in registry.AngularInput) (domain.DimensionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.SetAngularPosition(name, in)
}

// AvailableSlots lists the angular slots offered for name. The answer
// depends on the loaded batch: slots are discovered from the dimension names
// of the current table, or from the registry when no table is loaded.
func (s *Session) AvailableSlots(name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.registry.Get(name); err != nil {
		return nil, err
	}
	names := s.registry.Names()
	if s.table != nil {
		names = s.table.DimensionNames()
	}
	return registry.AvailableSlots(name, names), nil
}

// Link groups dimensions into a new profile group and returns its id.
func (s *Session) Link(names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Link(names)
}

// ResetGroups dissolves every profile group.
func (s *Session) ResetGroups() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.ResetGroups()
}

// Groups returns the current profile groups.
func (s *Session) Groups() []domain.ProfileGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Groups()
}

// ExportRegistryCSV writes the flat registry table.
func (s *Session) ExportRegistryCSV(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.WriteCSV(w)
}

// ExportRegistryJSON writes the registry document.
func (s *Session) ExportRegistryJSON(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.WriteJSON(w)
}

// ImportRegistry loads a registry document. The registry is unchanged when
// the document is rejected. Dimensions of the loaded table that a replace
// import left out get default profiles again.
func (s *Session) ImportRegistry(r io.Reader, mode registry.ImportMode) (registry.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.registry.ImportJSON(r, mode)
	if err != nil {
		return result, err
	}
	if s.table != nil {
		if created := s.registry.EnsureAll(s.table.DimensionNames()); len(created) > 0 {
			result.Created = append(result.Created, created...)
			sort.Strings(result.Created)
		}
	}
	return result, nil
}

// Compare parses two batches concurrently and aligns them. The current
// table and registry are not touched.
func (s *Session) Compare(ctx context.Context, textA, textB string, opts compare.Options) (domain.ComparisonResult, error) {
	var tableA, tableB *measurement.Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := measurement.Parse(gctx, textA)
		if err != nil {
			return fmt.Errorf("batch A: %w", err)
		}
		tableA = t
		return nil
	})
	g.Go(func() error {
		t, err := measurement.Parse(gctx, textB)
		if err != nil {
			return fmt.Errorf("batch B: %w", err)
		}
		tableB = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ComparisonResult{}, err
	}

	return compare.Align(tableA.Rows, tableB.Rows, s.compareOptions(opts)), nil
}

func (s *Session) compareOptions(opts compare.Options) compare.Options {
	def := s.settings.Compare
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.LabelA == "" {
		opts.LabelA = def.LabelA
	}
	if opts.LabelB == "" {
		opts.LabelB = def.LabelB
	}
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	return opts
}
