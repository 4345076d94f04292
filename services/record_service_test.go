package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/bingoserver/models"
)

// MockDatabase is a testify mock of persistence.Database.
type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDatabase) GetPlayerStats(ctx context.Context, name string) (models.PlayerStats, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(models.PlayerStats), args.Error(1)
}

func (m *MockDatabase) Close() error {
	return m.Called().Error(0)
}

// blockingDatabase holds every save until release is closed.
type blockingDatabase struct {
	release chan struct{}
	mu      sync.Mutex
	saved   []string
}

func (b *blockingDatabase) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	<-b.release
	b.mu.Lock()
	b.saved = append(b.saved, record.RoomCode)
	b.mu.Unlock()
	return nil
}

func (b *blockingDatabase) GetPlayerStats(context.Context, string) (models.PlayerStats, error) {
	return models.PlayerStats{}, nil
}

func (b *blockingDatabase) Close() error { return nil }

func TestRecordService_WritesInOrder(t *testing.T) {
	db := new(MockDatabase)
	db.On("SaveGameRecord", mock.Anything, mock.MatchedBy(func(r models.GameRecord) bool { return r.RoomCode == "a" })).Return(nil).Once()
	db.On("SaveGameRecord", mock.Anything, mock.MatchedBy(func(r models.GameRecord) bool { return r.RoomCode == "b" })).Return(errors.New("disk full")).Once()

	s := NewRecordService(db, 4)
	s.Record(models.GameRecord{RoomCode: "a"})
	s.Record(models.GameRecord{RoomCode: "b"})
	s.Close()

	db.AssertExpectations(t)
}

func TestRecordService_DropsWhenFull(t *testing.T) {
	db := &blockingDatabase{release: make(chan struct{})}
	s := NewRecordService(db, 1)

	// The writer takes the first record and blocks; the second fills the
	// queue; the third is dropped.
	s.Record(models.GameRecord{RoomCode: "1"})
	require.Eventually(t, func() bool { return len(s.queue) == 0 }, time.Second, time.Millisecond)
	s.Record(models.GameRecord{RoomCode: "2"})
	s.Record(models.GameRecord{RoomCode: "3"})

	close(db.release)
	s.Close()
	assert.Equal(t, []string{"1", "2"}, db.saved)
}

func TestRecordService_RecordAfterClose(t *testing.T) {
	db := new(MockDatabase)
	s := NewRecordService(db, 1)
	s.Close()
	s.Close()

	s.Record(models.GameRecord{RoomCode: "late"})
	db.AssertNotCalled(t, "SaveGameRecord", mock.Anything, mock.Anything)
}

func TestRecordService_PlayerStats(t *testing.T) {
	db := new(MockDatabase)
	want := models.PlayerStats{Name: "alice", TotalGames: 2, Wins: 2}
	db.On("GetPlayerStats", mock.Anything, "alice").Return(want, nil)

	s := NewRecordService(db, 1)
	defer s.Close()

	got, err := s.PlayerStats(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
