package vetting

import (
	"context"
	"sync"
	"time"

	"ekokampus/database"
	"ekokampus/settings"

	"github.com/apex/log"
)

// Sweep periodically closes vetting windows that outlived the timeout.
// Decided tallies resolve by consensus; the rest time out.
type Sweep struct {
	coordinator *Coordinator
	reports     *database.ReportStore
	settings    *settings.Service
	interval    time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewSweep(c *Coordinator, reports *database.ReportStore, s *settings.Service, interval time.Duration) *Sweep {
	return &Sweep{
		coordinator: c,
		reports:     reports,
		settings:    s,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

func (s *Sweep) Start() {
	s.wg.Add(1)
	go s.loop()
	log.Infof("vetting sweep started, interval %s", s.interval)
}

// Stop signals the loop and waits for the in-flight pass to finish.
func (s *Sweep) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("vetting sweep stopped")
}

func (s *Sweep) loop() {
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

func (s *Sweep) runOnce(ctx context.Context) {
	timeoutMin := s.settings.GetInt(ctx, settings.KeyVettingTimeoutMin, 30)
	expired, err := s.reports.ListExpiredVetting(ctx, time.Duration(timeoutMin)*time.Minute)
	if err != nil {
		log.Errorf("sweep: list expired vetting: %v", err)
		return
	}
	for _, id := range expired {
		if err := s.coordinator.ResolveTimeout(ctx, id); err != nil {
			log.Errorf("sweep: resolve %s: %v", id, err)
		}
	}
	if len(expired) > 0 {
		log.Infof("sweep resolved %d expired vetting windows", len(expired))
	}
}
