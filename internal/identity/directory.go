// Package identity resolves actor IDs to display names and roles for
// audit-log enrichment. Lookups are best-effort: callers fall back to
// the raw ID when resolution fails.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/repository"
)

// Identity is the resolved view of an actor.
type Identity struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// Directory looks up actor identities.
type Directory interface {
	Lookup(ctx context.Context, actorID string) (Identity, error)
}

// ErrUnknownActor indicates the actor ID resolves to no account.
var ErrUnknownActor = errors.New("unknown actor")

type directory struct {
	users  repository.UserRepository
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDirectory builds a directory over the user store with a cache-aside
// redis layer. A nil cache client disables caching.
func NewDirectory(users repository.UserRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) Directory {
	return &directory{users: users, cache: cache, ttl: ttl, logger: logger}
}

func (d *directory) Lookup(ctx context.Context, actorID string) (Identity, error) {
	if actorID == "" || actorID == domain.AnonymousActor.ID {
		return Identity{Name: "Anonymous", Role: domain.RoleAnonymous}, nil
	}

	if cached, ok := d.fromCache(ctx, actorID); ok {
		return cached, nil
	}

	user, err := d.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{}, ErrUnknownActor
		}
		return Identity{}, err
	}

	identity := Identity{Name: user.Name, Role: user.Role}
	d.toCache(ctx, actorID, identity)
	return identity, nil
}

func (d *directory) fromCache(ctx context.Context, actorID string) (Identity, bool) {
	if d.cache == nil {
		return Identity{}, false
	}
	raw, err := d.cache.Get(ctx, cacheKey(actorID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.logger.Debug("identity cache read failed", zap.String("actor_id", actorID), zap.Error(err))
		}
		return Identity{}, false
	}
	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return Identity{}, false
	}
	return identity, true
}

func (d *directory) toCache(ctx context.Context, actorID string, identity Identity) {
	if d.cache == nil {
		return
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, cacheKey(actorID), raw, d.ttl).Err(); err != nil {
		d.logger.Debug("identity cache write failed", zap.String("actor_id", actorID), zap.Error(err))
	}
}

func cacheKey(actorID string) string {
	return "identity:" + actorID
}

// DisplayName resolves a name for the actor, falling back to the raw ID.
func DisplayName(ctx context.Context, dir Directory, actorID string) string {
	if dir == nil {
		return actorID
	}
	identity, err := dir.Lookup(ctx, actorID)
	if err != nil || identity.Name == "" {
		return actorID
	}
	return identity.Name
}
