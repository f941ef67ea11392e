package service

import (
	"context"
	"errors"
	"sync"

	"gridreplay/internal/models"
	"gridreplay/internal/repository"
)

var errStoreDown = errors.New("store down")

type fakeDatasetRepo struct {
	mu   sync.Mutex
	sets map[string]models.Dataset
	rows map[string][]models.RawRow
	err  error
}

func newFakeDatasetRepo() *fakeDatasetRepo {
	return &fakeDatasetRepo{sets: map[string]models.Dataset{}, rows: map[string][]models.RawRow{}}
}

func (f *fakeDatasetRepo) Create(_ context.Context, d models.Dataset, rows []models.RawRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sets[d.ID] = d
	f.rows[d.ID] = rows
	return nil
}

func (f *fakeDatasetRepo) Get(_ context.Context, id string) (models.Dataset, []models.RawRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.sets[id]
	if !ok {
		return models.Dataset{}, nil, repository.ErrDatasetNotFound
	}
	return d, f.rows[id], nil
}

func (f *fakeDatasetRepo) List(context.Context) ([]models.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Dataset, 0, len(f.sets))
	for _, d := range f.sets {
		out = append(out, d)
	}
	return out, nil
}

type fakeRowRepo struct {
	mu      sync.Mutex
	rows    map[string][]models.AnnotatedRow
	deleted []string
	err     error
}

func newFakeRowRepo() *fakeRowRepo {
	return &fakeRowRepo{rows: map[string][]models.AnnotatedRow{}}
}

func (f *fakeRowRepo) Append(_ context.Context, sessionID, _ string, row models.AnnotatedRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[sessionID] = append(f.rows[sessionID], row)
	return nil
}

func (f *fakeRowRepo) List(_ context.Context, sessionID string, from int) ([]models.AnnotatedRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[sessionID]
	if from >= len(rows) {
		return nil, nil
	}
	return rows[from:], nil
}

func (f *fakeRowRepo) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, sessionID)
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func (f *fakeRowRepo) count(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[sessionID])
}

type fakeStateRepo struct {
	mu    sync.Mutex
	snaps map[string]models.SessionSnapshot
	err   error
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{snaps: map[string]models.SessionSnapshot{}}
}

func (f *fakeStateRepo) Save(_ context.Context, s models.SessionSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.snaps[s.SessionID] = s
	return nil
}

func (f *fakeStateRepo) Load(_ context.Context, sessionID string) (models.SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps[sessionID], nil
}

type fakeSink struct {
	mu     sync.Mutex
	rows   []models.AnnotatedRow
	err    error
	closed bool
}

func (f *fakeSink) PublishRow(_ context.Context, _ string, row models.AnnotatedRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return f.err
}

func (f *fakeSink) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// testRepos bundles the fakes behind a repository.Repository.
type testRepos struct {
	datasets *fakeDatasetRepo
	rows     *fakeRowRepo
	states   *fakeStateRepo
	events   *fakeEventRepo
}

func newTestRepos() *testRepos {
	return &testRepos{
		datasets: newFakeDatasetRepo(),
		rows:     newFakeRowRepo(),
		states:   newFakeStateRepo(),
		events:   &fakeEventRepo{},
	}
}

func (r *testRepos) repository() *repository.Repository {
	return &repository.Repository{
		DatasetRepo: r.datasets,
		RowRepo:     r.rows,
		StateRepo:   r.states,
		EventRepo:   r.events,
	}
}

func telemetryRows() []models.RawRow {
	return []models.RawRow{
		{Timestamp: "t0", IsDaytime: true, SolarInputWatts: 3000, GridStatus: models.GridNormal, DemandWatts: 2000, BatteryPercent: 60},
		{Timestamp: "t1", GridStatus: models.GridPowerOff, DemandWatts: 1200, BatteryPercent: 55},
		{Timestamp: "t2", GridStatus: models.GridPowerOff, DemandWatts: 1100, BatteryPercent: 0.2},
	}
}

func (r *testRepos) seed(id string, rows []models.RawRow) {
	_ = r.datasets.Create(context.Background(), models.Dataset{ID: id, Name: id + ".csv", Format: "csv", RowCount: len(rows)}, rows)
}
