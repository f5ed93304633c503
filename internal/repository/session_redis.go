package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
)

// sessionKeyPrefix — префикс ключей сессий в Redis.
const sessionKeyPrefix = "gm:session:"

// invalidateScript атомарно переводит сессию в invalidated.
// Возвращает 1, если переход выполнен, 0 — если сессия не найдена
// или уже инвалидирована.
var invalidateScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local s = cjson.decode(raw)
if s.state ~= 'active' then return 0 end
s.state = 'invalidated'
s.invalidation_reason = ARGV[1]
s.invalidated_at = ARGV[2]
redis.call('SET', KEYS[1], cjson.encode(s), 'KEEPTTL')
return 1
`)

// touchScript обновляет last_validated_at только у активной сессии.
var touchScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local s = cjson.decode(raw)
if s.state ~= 'active' then return 0 end
s.last_validated_at = ARGV[1]
redis.call('SET', KEYS[1], cjson.encode(s), 'EX', ARGV[2])
return 1
`)

// redisSession — представление сессии в Redis (ID хранится в ключе).
type redisSession struct {
	Fingerprint        string     `json:"fingerprint"`
	PrincipalID        string     `json:"principal_id"`
	AssertedRole       string     `json:"asserted_role"`
	State              string     `json:"state"`
	InvalidationReason string     `json:"invalidation_reason"`
	CreatedAt          time.Time  `json:"created_at"`
	LastValidatedAt    time.Time  `json:"last_validated_at"`
	InvalidatedAt      *time.Time `json:"invalidated_at,omitempty"`
}

type redisSessionRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSessionRepository создаёт хранилище сессий в Redis.
// ttl — время жизни ключа, продлевается при каждом Touch.
func NewRedisSessionRepository(client redis.UniversalClient, ttl time.Duration) SessionRepository {
	if ttl < time.Second {
		ttl = 24 * time.Hour
	}
	return &redisSessionRepo{client: client, ttl: ttl}
}

func (r *redisSessionRepo) Create(ctx context.Context, s *model.Session) error {
	data, err := json.Marshal(redisSession{
		Fingerprint:     s.Fingerprint,
		PrincipalID:     s.PrincipalID,
		AssertedRole:    s.AssertedRole,
		State:           string(s.State),
		CreatedAt:       s.CreatedAt.UTC(),
		LastValidatedAt: s.LastValidatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}

	ok, err := r.client.SetNX(ctx, sessionKeyPrefix+s.ID, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("ошибка создания сессии в Redis: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (r *redisSessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии из Redis: %w", err)
	}

	var rs redisSession
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("десериализация сессии: %w", err)
	}
	return &model.Session{
		ID:                 id,
		Fingerprint:        rs.Fingerprint,
		PrincipalID:        rs.PrincipalID,
		AssertedRole:       rs.AssertedRole,
		State:              model.SessionState(rs.State),
		InvalidationReason: rs.InvalidationReason,
		CreatedAt:          rs.CreatedAt,
		LastValidatedAt:    rs.LastValidatedAt,
		InvalidatedAt:      rs.InvalidatedAt,
	}, nil
}

func (r *redisSessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	n, err := touchScript.Run(ctx, r.client,
		[]string{sessionKeyPrefix + id},
		at.UTC().Format(time.RFC3339Nano), int(r.ttl.Seconds()),
	).Int()
	if err != nil {
		return fmt.Errorf("ошибка обновления сессии в Redis: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisSessionRepo) Invalidate(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	n, err := invalidateScript.Run(ctx, r.client,
		[]string{sessionKeyPrefix + id},
		reason, at.UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка инвалидации сессии в Redis: %w", err)
	}
	return n == 1, nil
}

// RedisReadinessChecker проверяет Redis для /health/ready.
type RedisReadinessChecker struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedisReadinessChecker создаёт проверку готовности Redis.
func NewRedisReadinessChecker(client redis.UniversalClient) *RedisReadinessChecker {
	return &RedisReadinessChecker{client: client, timeout: 3 * time.Second}
}

// CheckReady возвращает ("ok"|"fail", сообщение).
func (c *RedisReadinessChecker) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "Redis доступен"
}
