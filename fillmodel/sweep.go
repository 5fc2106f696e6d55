package fillmodel

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"ekokampus/database"

	"github.com/apex/log"
)

// DecaySweep periodically applies the slow-compaction correction to
// bins that have been quiet since their last activity.
type DecaySweep struct {
	db       *sql.DB
	bins     *database.BinStore
	model    *Model
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewDecaySweep(db *sql.DB, bins *database.BinStore, model *Model, interval time.Duration) *DecaySweep {
	return &DecaySweep{
		db:       db,
		bins:     bins,
		model:    model,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *DecaySweep) Start() {
	s.wg.Add(1)
	go s.loop()
	log.Infof("fill decay sweep started, interval %s", s.interval)
}

func (s *DecaySweep) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("fill decay sweep stopped")
}

func (s *DecaySweep) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

func (s *DecaySweep) runOnce(ctx context.Context) {
	bins, err := s.bins.ListForDecay(ctx)
	if err != nil {
		log.Errorf("decay sweep: list bins: %v", err)
		return
	}
	now := time.Now()
	for _, b := range bins {
		last := lastActivity(b.LastReportAt, b.LastEmptiedAt)
		if last == nil {
			continue
		}
		hours := now.Sub(*last).Hours()
		if hours < 1 {
			continue
		}
		if err := s.model.ApplyDecayCorrection(ctx, s.db, b.ID, hours); err != nil {
			log.Errorf("decay sweep: bin %s: %v", b.ID, err)
		}
	}
}

func lastActivity(reportAt, emptiedAt *time.Time) *time.Time {
	switch {
	case reportAt == nil:
		return emptiedAt
	case emptiedAt == nil:
		return reportAt
	case reportAt.After(*emptiedAt):
		return reportAt
	default:
		return emptiedAt
	}
}
