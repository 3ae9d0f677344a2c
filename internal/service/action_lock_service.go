package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

type distributedLocker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// ActionLockService allows one in-flight advisor action per admin.
// It uses Redis when a locker is configured and an in-process table otherwise.
type ActionLockService struct {
	locker distributedLocker
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	local map[string]localLock
}

type localLock struct {
	token   string
	expires time.Time
}

func NewActionLockService(locker distributedLocker, ttl time.Duration, logger *zap.Logger) *ActionLockService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionLockService{locker: locker, ttl: ttl, logger: logger, local: make(map[string]localLock)}
}

// Acquire takes the lock for userID and returns its release func.
// A held lock yields ACTION_IN_PROGRESS.
func (s *ActionLockService) Acquire(ctx context.Context, userID string) (func(), error) {
	key := "advisor-action:" + userID
	token := uuid.NewString()

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, key, token, s.ttl)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to acquire action lock")
		}
		if !ok {
			return nil, appErrors.ErrActionInProgress
		}
		return func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.logger.Warn("failed to release action lock", zap.String("key", key), zap.Error(err))
			}
		}, nil
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.local[key]; ok && now.Before(held.expires) {
		return nil, appErrors.ErrActionInProgress
	}
	s.local[key] = localLock{token: token, expires: now.Add(s.ttl)}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if held, ok := s.local[key]; ok && held.token == token {
			delete(s.local, key)
		}
	}, nil
}
