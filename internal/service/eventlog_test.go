package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gridreplay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listCall records the arguments of one EventRepo.List call.
type listCall struct {
	session  string
	from, to time.Time
	typ      string
}

// fakeEventRepo records appends and serves List from a fixed slice.
type fakeEventRepo struct {
	mu sync.Mutex

	appended  []models.SessionEvent
	lists     []listCall
	events    []models.SessionEvent
	err       error
	appendErr error
}

func (f *fakeEventRepo) List(_ context.Context, sessionID string, from, to time.Time, typ string) ([]models.SessionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, listCall{session: sessionID, from: from, to: to, typ: typ})
	return f.events, f.err
}

func (f *fakeEventRepo) Append(_ context.Context, e models.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

// ofType returns the appended events with the given type.
func (f *fakeEventRepo) ofType(typ string) []models.SessionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SessionEvent
	for _, e := range f.appended {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestCleanFilter(t *testing.T) {
	plus3 := time.FixedZone("UTC+3", 3*3600)
	minus2 := time.FixedZone("UTC-2", -2*3600)

	cases := []struct {
		name    string
		in      LogFilter
		want    LogFilter
		wantErr error
	}{
		{
			name: "open filter passes through",
			in:   LogFilter{SessionID: "s1"},
			want: LogFilter{SessionID: "s1"},
		},
		{
			name: "bounds move to UTC and type is canonical",
			in: LogFilter{
				SessionID: " s1 ",
				From:      time.Date(2024, 6, 1, 12, 0, 0, 0, plus3),
				To:        time.Date(2024, 6, 1, 12, 0, 0, 0, minus2),
				Type:      " alert ",
			},
			want: LogFilter{
				SessionID: "s1",
				From:      time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
				To:        time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
				Type:      models.EventAlert,
			},
		},
		{
			name: "equal bounds are a valid instant",
			in: LogFilter{
				From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				Type: "playback",
			},
			want: LogFilter{
				From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				Type: models.EventPlayback,
			},
		},
		{
			name: "inverted across zones",
			in: LogFilter{
				From: time.Date(2024, 6, 1, 12, 0, 0, 0, minus2), // 14:00Z
				To:   time.Date(2024, 6, 1, 15, 0, 0, 0, plus3),  // 12:00Z
			},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "unknown type",
			in:      LogFilter{Type: "heartbeat"},
			wantErr: ErrUnknownEventType,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cleanFilter(tc.in)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.SessionID, got.SessionID)
			assert.Equal(t, tc.want.Type, got.Type)
			assert.True(t, tc.want.From.Equal(got.From), "from %v", got.From)
			assert.True(t, tc.want.To.Equal(got.To), "to %v", got.To)
			if !got.From.IsZero() {
				assert.Equal(t, time.UTC, got.From.Location())
			}
		})
	}
}

func TestEventLogService_List(t *testing.T) {
	stored := []models.SessionEvent{
		{EventID: "e1", SessionID: "s1", Type: models.EventLoad, RowIndex: -1},
		{EventID: "e2", SessionID: "s1", Type: models.EventAlert, RowIndex: 2},
	}
	repo := &fakeEventRepo{events: stored}
	svc := NewEventLogService(repo)

	from := time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("UTC+1", 3600))
	got, err := svc.List(context.Background(), LogFilter{SessionID: "s1", From: from, Type: "Alert"})
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	require.Len(t, repo.lists, 1)
	call := repo.lists[0]
	assert.Equal(t, "s1", call.session)
	assert.Equal(t, models.EventAlert, call.typ)
	assert.True(t, call.from.Equal(time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)))
	assert.True(t, call.to.IsZero())
}

func TestEventLogService_ListRejectsBeforeQuerying(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewEventLogService(repo)

	_, err := svc.List(context.Background(), LogFilter{Type: "nope"})
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = svc.List(context.Background(), LogFilter{
		From: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
	assert.Empty(t, repo.lists)
}

func TestEventLogService_ListStoreError(t *testing.T) {
	repo := &fakeEventRepo{err: errors.New("database is locked")}

	_, err := NewEventLogService(repo).List(context.Background(), LogFilter{SessionID: "s1"})
	assert.ErrorIs(t, err, repo.err)
}
