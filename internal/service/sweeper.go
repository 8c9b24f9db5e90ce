package service

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// TimeoutSweeper 주기적으로 마감이 지난 매치를 draw 처리. 연결 상태와 무관하게 동작
type TimeoutSweeper struct {
	matches   *MatchCoordinator
	clock     clockwork.Clock
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewTimeoutSweeper retention이 0이면 끝난 매치 레코드를 지우지 않음
func NewTimeoutSweeper(
	matches *MatchCoordinator,
	clock clockwork.Clock,
	logger *zap.Logger,
	interval time.Duration,
	retention time.Duration,
) *TimeoutSweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &TimeoutSweeper{
		matches:   matches,
		clock:     clock,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopChan:  make(chan struct{}),
	}
}

// Start 스위퍼 시작
func (s *TimeoutSweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting TimeoutSweeper", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.loop()
}

// Stop 스위퍼 중지
func (s *TimeoutSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("TimeoutSweeper stopped")
}

func (s *TimeoutSweeper) loop() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.Sweep()
		case <-s.stopChan:
			return
		}
	}
}

// Sweep 한 번 실행
func (s *TimeoutSweeper) Sweep() {
	now := s.clock.Now()

	if n := s.matches.SweepTimeouts(now); n > 0 {
		s.logger.Info("Timed out matches", zap.Int("count", n))
	}
	if s.retention > 0 {
		if n := s.matches.PruneFinished(now.Add(-s.retention)); n > 0 {
			s.logger.Debug("Pruned finished matches", zap.Int("count", n))
		}
	}
}
