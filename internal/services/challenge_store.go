package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"settlement-service/pkg/common"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// WithdrawalChallenge binds an OTP to the amount whose PIN check issued it.
type WithdrawalChallenge struct {
	OwnerID   string          `json:"ownerId"`
	Amount    decimal.Decimal `json:"amount"`
	OTP       string          `json:"otp"`
	IssuedAt  time.Time       `json:"issuedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// ChallengeStore keeps at most one challenge per owner; Put replaces any
// previous one. Get returns common.ErrNotFound when none is stored.
type ChallengeStore interface {
	Put(ctx context.Context, challenge WithdrawalChallenge, ttl time.Duration) error
	Get(ctx context.Context, ownerID string) (*WithdrawalChallenge, error)
	Delete(ctx context.Context, ownerID string) error
}

// NewChallengeStore returns a Redis-backed store when client answers a ping,
// and an in-process store otherwise. The in-process store only suits a single
// API instance.
func NewChallengeStore(ctx context.Context, client redis.UniversalClient, log *logrus.Entry) ChallengeStore {
	if client != nil {
		err := client.Ping(ctx).Err()
		if err == nil {
			return NewRedisChallengeStore(client)
		}
		log.WithError(err).Warn("redis unreachable, withdrawal challenges kept in memory")
	} else {
		log.Warn("redis not configured, withdrawal challenges kept in memory")
	}
	return NewMemoryChallengeStore()
}

type RedisChallengeStore struct {
	Client redis.UniversalClient
	Prefix string
}

func NewRedisChallengeStore(client redis.UniversalClient) *RedisChallengeStore {
	return &RedisChallengeStore{Client: client, Prefix: "withdrawal:challenge:"}
}

func (s *RedisChallengeStore) Put(ctx context.Context, challenge WithdrawalChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.Prefix+challenge.OwnerID, payload, ttl).Err()
}

func (s *RedisChallengeStore) Get(ctx context.Context, ownerID string) (*WithdrawalChallenge, error) {
	payload, err := s.Client.Get(ctx, s.Prefix+ownerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var challenge WithdrawalChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (s *RedisChallengeStore) Delete(ctx context.Context, ownerID string) error {
	return s.Client.Del(ctx, s.Prefix+ownerID).Err()
}

type memoryChallenge struct {
	challenge WithdrawalChallenge
	evictAt   time.Time
}

// MemoryChallengeStore is a single-process ChallengeStore for deployments
// without Redis.
type MemoryChallengeStore struct {
	mu    sync.Mutex
	items map[string]memoryChallenge
	Now   func() time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		items: make(map[string]memoryChallenge),
		Now:   time.Now,
	}
}

func (s *MemoryChallengeStore) Put(_ context.Context, challenge WithdrawalChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	for owner, item := range s.items {
		if !now.Before(item.evictAt) {
			delete(s.items, owner)
		}
	}
	s.items[challenge.OwnerID] = memoryChallenge{challenge: challenge, evictAt: now.Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, ownerID string) (*WithdrawalChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[ownerID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if !s.Now().Before(item.evictAt) {
		delete(s.items, ownerID)
		return nil, common.ErrNotFound
	}
	challenge := item.challenge
	return &challenge, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, ownerID)
	return nil
}
