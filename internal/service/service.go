package service

import (
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Options 배틀 서비스 조립 설정
type Options struct {
	TimeLimits          []int // minutes
	DefaultDifficulties []models.Difficulty
	RoomTTL             time.Duration
	RoomCodes           CodeGenerator
	SweepInterval       time.Duration
	MatchRetention      time.Duration
	Picker              Picker
}

// Service 배틀 컴포넌트 묶음. 연결 수명 주기를 각 컴포넌트에 전달
type Service struct {
	Registry *Registry
	Queue    *QueueManager
	Rooms    *RoomManager
	Matches  *MatchCoordinator
	Problems *ProblemProvider
	Sweeper  *TimeoutSweeper
	logger   *zap.Logger
}

func NewService(
	registry *Registry,
	queue *QueueManager,
	rooms *RoomManager,
	matches *MatchCoordinator,
	problems *ProblemProvider,
	sweeper *TimeoutSweeper,
	logger *zap.Logger,
) *Service {
	return &Service{
		Registry: registry,
		Queue:    queue,
		Rooms:    rooms,
		Matches:  matches,
		Problems: problems,
		Sweeper:  sweeper,
		logger:   logger,
	}
}

// New 저장소/실행 엔진/전송 계층으로 전체 컴포넌트 조립
func New(
	repo ProblemRepository,
	exec Executor,
	sender Sender,
	clock clockwork.Clock,
	logger *zap.Logger,
	opts Options,
) *Service {
	registry := NewRegistry()
	notifier := NewConnectionNotifier(registry, sender, logger.Named("notifier"))
	guard := NewPairingGuard()
	problems := NewProblemProvider(repo, opts.Picker, opts.DefaultDifficulties)

	matches := NewMatchCoordinator(problems, exec, notifier, clock, logger.Named("match"))
	queue := NewQueueManager(opts.TimeLimits, guard, matches, notifier, clock, logger.Named("queue"))
	rooms := NewRoomManager(guard, matches, problems, notifier, clock, logger.Named("room"), RoomOptions{
		TTL:   opts.RoomTTL,
		Codes: opts.RoomCodes,
	})
	sweeper := NewTimeoutSweeper(matches, clock, logger.Named("sweeper"), opts.SweepInterval, opts.MatchRetention)

	return NewService(registry, queue, rooms, matches, problems, sweeper, logger)
}

// Connect 새 연결 바인딩. 같은 사용자의 이전 연결은 대체됨
func (s *Service) Connect(connectionID, userID, username string) {
	s.Registry.Bind(connectionID, userID, username)
	s.logger.Debug("Connection bound",
		zap.String("connectionId", connectionID),
		zap.String("userId", userID))
}

// Disconnect 현재 연결이 끊긴 경우에만 대기열/방 정리와 몰수 처리
func (s *Service) Disconnect(connectionID string) {
	b, current := s.Registry.Unbind(connectionID)
	if !current {
		return
	}

	queued := s.Queue.RemoveUser(b.UserID)
	rooms := s.Rooms.RemoveUser(b.UserID)
	abandoned := s.Matches.ResolveDisconnect(b.UserID)

	s.logger.Info("User disconnected",
		zap.String("userId", b.UserID),
		zap.Int("queueEntries", queued),
		zap.Int("rooms", rooms),
		zap.Int("abandonedMatches", abandoned))
}

// Stats 운영용 대기열/매치 현황
func (s *Service) Stats() *models.QueueStats {
	return &models.QueueStats{
		TimeLimits:    s.Queue.TimeLimits(),
		Buckets:       s.Queue.Snapshot(),
		ActiveMatches: s.Matches.ActiveCount(),
		LiveRooms:     s.Rooms.Count(),
		Connections:   s.Registry.Count(),
	}
}
