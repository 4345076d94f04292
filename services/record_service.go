// services/record_service.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/persistence"
)

const (
	defaultQueueSize = 256
	writeTimeout     = 5 * time.Second
)

// RecordService writes finished games to the database from a background
// goroutine so gameplay never waits on storage.
type RecordService struct {
	db        persistence.Database
	queue     chan models.GameRecord
	wg        sync.WaitGroup
	closeOnce sync.Once
	mutex     sync.RWMutex
	closed    bool
}

// NewRecordService starts the writer. A queueSize <= 0 uses the default.
func NewRecordService(db persistence.Database, queueSize int) *RecordService {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &RecordService{
		db:    db,
		queue: make(chan models.GameRecord, queueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record enqueues record. It drops the record when the queue is full or the
// service is closed.
func (s *RecordService) Record(record models.GameRecord) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		logger.Log.Warnf("record service closed, dropping game %s", record.RoomCode)
		return
	}
	select {
	case s.queue <- record:
	default:
		logger.Log.Warnf("record queue full, dropping game %s", record.RoomCode)
	}
}

// PlayerStats returns the stored results for a player name.
func (s *RecordService) PlayerStats(ctx context.Context, name string) (models.PlayerStats, error) {
	return s.db.GetPlayerStats(ctx, name)
}

// Close drains the queue and waits for pending writes.
func (s *RecordService) Close() {
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		close(s.queue)
		s.mutex.Unlock()
	})
	s.wg.Wait()
}

func (s *RecordService) run() {
	defer s.wg.Done()
	for record := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.db.SaveGameRecord(ctx, record); err != nil {
			logger.Log.Errorf("saving game %s: %v", record.RoomCode, err)
		}
		cancel()
	}
}
