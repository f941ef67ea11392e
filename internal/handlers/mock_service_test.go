package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"gridreplay/internal/dataset"
	"gridreplay/internal/models"
	"gridreplay/internal/replay"
	"gridreplay/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockDatasets struct {
	importResp   service.DatasetImport
	importErr    error
	lastFilename string
	lastBody     string
	list         []models.Dataset
	listErr      error
}

func (m *mockDatasets) ImportDataset(_ context.Context, filename string, r io.Reader) (service.DatasetImport, error) {
	m.lastFilename = filename
	b, _ := io.ReadAll(r)
	m.lastBody = string(b)
	return m.importResp, m.importErr
}
func (m *mockDatasets) ListDatasets(context.Context) ([]models.Dataset, error) {
	return m.list, m.listErr
}

// mockReplay is safe for concurrent use; the websocket tests read it from
// the server goroutine.
type mockReplay struct {
	mu sync.Mutex

	sessionID  string
	summary    replay.Summary
	summaryErr error
	loadErr    error
	reloadErr  error
	advance    service.AdvanceResult
	advanceErr error
	rows       []models.AnnotatedRow
	rowsErr    error
	exportBody string
	exportErr  error
	closeErr   error

	lastDatasetID string
	lastDiscard   bool
	lastFrom      int
	lastFormat    dataset.Format
	advanceCalls  int
	closeCalls    int
}

func (m *mockReplay) LoadDataset(_ context.Context, datasetID string) (string, replay.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDatasetID = datasetID
	return m.sessionID, m.summary, m.loadErr
}
func (m *mockReplay) ReloadDataset(_ context.Context, _ string, datasetID string, discard bool) (replay.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDatasetID = datasetID
	m.lastDiscard = discard
	return m.summary, m.reloadErr
}
func (m *mockReplay) Advance(context.Context, string) (service.AdvanceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceCalls++
	return m.advance, m.advanceErr
}
func (m *mockReplay) Summary(context.Context, string) (replay.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary, m.summaryErr
}
func (m *mockReplay) Rows(_ context.Context, _ string, from int) ([]models.AnnotatedRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFrom = from
	if m.rowsErr != nil {
		return nil, m.rowsErr
	}
	var out []models.AnnotatedRow
	for _, r := range m.rows {
		if r.Index >= from {
			out = append(out, r)
		}
	}
	return out, nil
}
func (m *mockReplay) Export(_ context.Context, _ string, format dataset.Format, w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFormat = format
	if m.exportErr != nil {
		return m.exportErr
	}
	_, err := io.WriteString(w, m.exportBody)
	return err
}
func (m *mockReplay) CloseSession(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return m.closeErr
}

// set replaces the summary and rows under the lock.
func (m *mockReplay) set(sum replay.Summary, rows []models.AnnotatedRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = sum
	m.rows = rows
}

type mockPlayback struct {
	status       service.PlaybackStatus
	err          error
	lastInterval time.Duration
	playCalls    int
	pauseCalls   int
	speedCalls   int
}

func (m *mockPlayback) Play(_ context.Context, id string, d time.Duration) (service.PlaybackStatus, error) {
	m.playCalls++
	m.lastInterval = d
	return service.PlaybackStatus{SessionID: id, Playing: true, IntervalMS: d.Milliseconds()}, m.err
}
func (m *mockPlayback) Pause(_ context.Context, id string) (service.PlaybackStatus, error) {
	m.pauseCalls++
	return service.PlaybackStatus{SessionID: id}, m.err
}
func (m *mockPlayback) SetSpeed(_ context.Context, id string, d time.Duration) (service.PlaybackStatus, error) {
	m.speedCalls++
	m.lastInterval = d
	return service.PlaybackStatus{SessionID: id, Playing: m.status.Playing, IntervalMS: d.Milliseconds()}, m.err
}
func (m *mockPlayback) PlaybackStatus(string) service.PlaybackStatus { return m.status }
func (m *mockPlayback) Run(context.Context, time.Duration) {}

type mockMonitoring struct {
	status service.SessionStatus
	err    error
}

func (m *mockMonitoring) GetStatus(context.Context, string) (service.SessionStatus, error) {
	return m.status, m.err
}

type mockEventLog struct {
	resp        []models.SessionEvent
	err         error
	lastSession string
	lastFrom    time.Time
	lastTo      time.Time
	lastType    string
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.SessionEvent, error) {
	m.lastSession = f.SessionID
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
