package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/scoring"
)

const defaultAgentCacheSize = 1024

// AgentResolver creates agents lazily on first encounter. Lookups go through
// an in-process LRU, then the store, then the helpdesk directory.
type AgentResolver struct {
	store     AgentStore
	directory AgentDirectory
	cache     *lru.Cache[int64, scoring.Agent]
	group     singleflight.Group
	logger    *zap.Logger
}

// NewAgentResolver returns a resolver. directory may be nil, in which case
// unknown agents are stored with an empty name and email.
func NewAgentResolver(store AgentStore, directory AgentDirectory, cacheSize int, logger *zap.Logger) (*AgentResolver, error) {
	if store == nil {
		panic("agent store must not be nil")
	}
	if cacheSize <= 0 {
		cacheSize = defaultAgentCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[int64, scoring.Agent](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create agent cache: %w", err)
	}
	return &AgentResolver{
		store:     store,
		directory: directory,
		cache:     cache,
		logger:    logger.Named("agent-resolver"),
	}, nil
}

// Resolve returns the agent, creating it in the store if it is new.
func (r *AgentResolver) Resolve(ctx context.Context, id int64) (scoring.Agent, error) {
	if a, ok := r.cache.Get(id); ok {
		return a, nil
	}

	v, err, _ := r.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		a, err := r.store.GetAgent(ctx, id)
		if err == nil {
			r.cache.Add(id, a)
			return a, nil
		}
		if !errors.Is(err, repository.ErrAgentNotFound) {
			return nil, err
		}

		a = r.lookup(ctx, id)
		if err := r.store.UpsertAgent(ctx, a); err != nil {
			return nil, err
		}
		r.cache.Add(id, a)
		r.logger.Info("agent created", zap.Int64("agent_id", id), zap.String("name", a.Name))
		return a, nil
	})
	if err != nil {
		return scoring.Agent{}, err
	}
	return v.(scoring.Agent), nil
}

func (r *AgentResolver) lookup(ctx context.Context, id int64) scoring.Agent {
	if r.directory == nil {
		return scoring.Agent{ID: id}
	}
	a, err := r.directory.LookupAgent(ctx, id)
	if err != nil {
		r.logger.Warn("helpdesk agent lookup failed, storing placeholder",
			zap.Int64("agent_id", id),
			zap.Error(err))
		return scoring.Agent{ID: id}
	}
	a.ID = id
	return a
}
