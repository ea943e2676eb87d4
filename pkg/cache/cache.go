package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL 상수 정의
const (
	TTLProfile    = 10 * time.Minute // display name / avatar (rarely change)
	TTLMembership = 30 * time.Second // access gate answers (must follow role changes quickly)
	TTLDefault    = 5 * time.Minute
)

// 캐시 키 접두사
const (
	PrefixProfile    = "chat:profile:"
	PrefixMembership = "chat:membership:"
)

// ErrMiss is returned when a key is absent
var ErrMiss = errors.New("cache miss")

// Service Redis 캐시 서비스 인터페이스
type Service interface {
	// 기본 캐시 연산
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// 프로필 캐시
	GetProfiles(ctx context.Context, userIDs []string) (map[string][]byte, error)
	SetProfiles(ctx context.Context, profiles map[string]interface{}) error
	InvalidateProfile(ctx context.Context, userID string) error

	// 멤버십 캐시
	GetMembership(ctx context.Context, groupID uint64, userID string, dest interface{}) error
	SetMembership(ctx context.Context, groupID uint64, userID string, data interface{}) error
	InvalidateMembership(ctx context.Context, groupID uint64, userID string) error

	// 유틸리티
	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis 기반 캐시 구현
type redisCache struct {
	client *redis.Client
}

// NewService 새로운 캐시 서비스 생성. client may be nil, in which case every
// read misses and every write is dropped.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable Redis 연결 가능 여부
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping Redis 연결 테스트
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get 캐시에서 값 조회
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set 캐시에 값 저장
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Redis 없으면 무시
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 캐시 삭제
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ========================================
// 프로필 캐시
// ========================================

func profileKey(userID string) string {
	return PrefixProfile + userID
}

// GetProfiles returns the cached JSON of every hit in one MGET round trip
func (c *redisCache) GetProfiles(ctx context.Context, userIDs []string) (map[string][]byte, error) {
	hits := make(map[string][]byte, len(userIDs))
	if c.client == nil || len(userIDs) == 0 {
		return hits, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = profileKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return hits, err
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			hits[userIDs[i]] = []byte(s)
		}
	}
	return hits, nil
}

// SetProfiles stores profiles keyed by user id in one pipeline
func (c *redisCache) SetProfiles(ctx context.Context, profiles map[string]interface{}) error {
	if c.client == nil || len(profiles) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for userID, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		pipe.Set(ctx, profileKey(userID), data, TTLProfile)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) InvalidateProfile(ctx context.Context, userID string) error {
	return c.Delete(ctx, profileKey(userID))
}

// ========================================
// 멤버십 캐시
// ========================================

func membershipKey(groupID uint64, userID string) string {
	return fmt.Sprintf("%s%d:%s", PrefixMembership, groupID, userID)
}

func (c *redisCache) GetMembership(ctx context.Context, groupID uint64, userID string, dest interface{}) error {
	return c.Get(ctx, membershipKey(groupID, userID), dest)
}

func (c *redisCache) SetMembership(ctx context.Context, groupID uint64, userID string, data interface{}) error {
	return c.Set(ctx, membershipKey(groupID, userID), data, TTLMembership)
}

func (c *redisCache) InvalidateMembership(ctx context.Context, groupID uint64, userID string) error {
	return c.Delete(ctx, membershipKey(groupID, userID))
}
