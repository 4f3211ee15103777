package journal

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/database"
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
	"github.com/nerrad567/iot-device-sdk/migrations"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	require.NoError(t, db.Migrate(ctx, migrations.FS))
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_CreateAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	for i, op := range []string{"GetShadow", "UpdateShadow", "GetShadow"} {
		entry := &Entry{
			Operation:        op,
			CorrelationToken: "token-" + op,
			PublishTopic:     "$aws/things/abc/shadow/get",
			Outcome:          string(servicemodel.OutcomeSuccess),
			StartedAt:        base.Add(time.Duration(i) * time.Second),
			Duration:         150 * time.Millisecond,
		}
		require.NoError(t, repo.Create(ctx, entry))
		assert.NotEmpty(t, entry.ID)
	}

	result, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, defaultLimit, result.Limit)
	require.Len(t, result.Entries, 3)

	assert.True(t, result.Entries[0].StartedAt.Equal(base.Add(2*time.Second)), "newest first")
	assert.True(t, result.Entries[2].StartedAt.Equal(base))
	assert.Equal(t, 150*time.Millisecond, result.Entries[0].Duration)
	assert.Equal(t, "token-GetShadow", result.Entries[0].CorrelationToken)
}

func TestSQLiteRepository_ListFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Operation: "GetShadow", Outcome: "success"},
		{Operation: "GetShadow", Outcome: "rejected", Error: "GetShadow request rejected"},
		{Operation: "UpdateJobExecution", Outcome: "transport_error", Error: "timeout"},
		{Operation: "GetShadow", Outcome: "success"},
	}
	for i := range entries {
		entries[i].StartedAt = base.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	tests := []struct {
		name   string
		filter Filter
		total  int
		page   int
	}{
		{name: "by operation", filter: Filter{Operation: "GetShadow"}, total: 3, page: 3},
		{name: "by outcome", filter: Filter{Outcome: "success"}, total: 2, page: 2},
		{name: "both", filter: Filter{Operation: "GetShadow", Outcome: "rejected"}, total: 1, page: 1},
		{name: "no match", filter: Filter{Operation: "RegisterThing"}, total: 0, page: 0},
		{name: "paged", filter: Filter{Limit: 2, Offset: 3}, total: 4, page: 1},
		{name: "negative offset", filter: Filter{Limit: 1, Offset: -5}, total: 4, page: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, result.Total)
			assert.Len(t, result.Entries, tt.page)
			assert.NotNil(t, result.Entries)
		})
	}

	result, err := repo.List(ctx, Filter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxLimit, result.Limit)

	result, err = repo.List(ctx, Filter{Outcome: "transport_error"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "timeout", result.Entries[0].Error)
}

type warnLog struct {
	mu       sync.Mutex
	messages []string
}

func (l *warnLog) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *warnLog) logged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func TestRecorder_OperationCompleted(t *testing.T) {
	repo := newTestRepository(t)
	recorder := NewRecorder(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var observer servicemodel.Observer = recorder
	observer.OperationCompleted(ctx, servicemodel.ExecutionRecord{
		Operation:        "GetNamedShadow",
		CorrelationToken: "3f1c",
		PublishTopic:     "$aws/things/abc/shadow/name/config/get",
		ResponseTopic:    "$aws/things/abc/shadow/name/config/get/rejected",
		Outcome:          servicemodel.OutcomeRejected,
		Err:              errors.New("GetNamedShadow request rejected"),
		StartedAt:        time.Now(),
		Duration:         42 * time.Millisecond,
	})
	observer.StreamMessageReceived("CreateShadowDeltaUpdatedStream", nil)
	require.NoError(t, recorder.Close())

	result, err := repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1, "a canceled caller context does not drop the entry")

	e := result.Entries[0]
	assert.Equal(t, "GetNamedShadow", e.Operation)
	assert.Equal(t, "3f1c", e.CorrelationToken)
	assert.Equal(t, "rejected", e.Outcome)
	assert.Equal(t, "GetNamedShadow request rejected", e.Error)
	assert.Equal(t, "$aws/things/abc/shadow/name/config/get/rejected", e.ResponseTopic)
	assert.Equal(t, 42*time.Millisecond, e.Duration)
}

type failingRepository struct{}

func (failingRepository) Create(context.Context, *Entry) error {
	return errors.New("disk full")
}

func (failingRepository) List(context.Context, Filter) (*ListResult, error) {
	return nil, errors.New("disk full")
}

func TestRecorder_WriteFailureIsLogged(t *testing.T) {
	logs := &warnLog{}
	recorder := NewRecorder(failingRepository{}, logs)

	recorder.OperationCompleted(context.Background(), servicemodel.ExecutionRecord{Operation: "GetShadow"})
	require.NoError(t, recorder.Close())
	assert.Equal(t, []string{"journal write failed"}, logs.logged())
}

// blockingRepository holds every Create until release is closed.
type blockingRepository struct {
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	created []string
}

func (b *blockingRepository) Create(_ context.Context, e *Entry) error {
	b.started <- struct{}{}
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, e.Operation)
	return nil
}

func (b *blockingRepository) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{}, nil
}

func TestRecorder_DoesNotBlockOnSlowWrites(t *testing.T) {
	repo := &blockingRepository{started: make(chan struct{}, 4), release: make(chan struct{})}
	logs := &warnLog{}
	recorder := newRecorder(repo, logs, 1)

	recorder.OperationCompleted(context.Background(), servicemodel.ExecutionRecord{Operation: "GetShadow"})
	select {
	case <-repo.started:
	case <-time.After(2 * time.Second):
		t.Fatal("writer never started")
	}

	returned := make(chan struct{})
	go func() {
		recorder.OperationCompleted(context.Background(), servicemodel.ExecutionRecord{Operation: "UpdateShadow"})
		recorder.OperationCompleted(context.Background(), servicemodel.ExecutionRecord{Operation: "DeleteShadow"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("OperationCompleted blocked on the journal write")
	}
	assert.Equal(t, []string{"journal queue full, entry dropped"}, logs.logged())

	close(repo.release)
	require.NoError(t, recorder.Close())
	assert.Equal(t, []string{"GetShadow", "UpdateShadow"}, repo.created)

	recorder.OperationCompleted(context.Background(), servicemodel.ExecutionRecord{Operation: "GetShadow"})
	assert.NoError(t, recorder.Close(), "Close is idempotent")
	assert.Len(t, repo.created, 2, "records after Close are ignored")
}

func TestEntryFromRecord(t *testing.T) {
	entry := EntryFromRecord(servicemodel.ExecutionRecord{Operation: "GetShadow", Outcome: servicemodel.OutcomeSuccess})
	assert.Empty(t, entry.Error)
	assert.Empty(t, entry.ID)
	assert.Equal(t, "success", entry.Outcome)
}
