package memory

import (
	"context"
	"time"

	"askdocs-be/internal/constant"
	"askdocs-be/internal/entity"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/unitofwork"

	"github.com/patrickmn/go-cache"
)

const instructionsCacheKey = "system_instructions"

// InstructionCache serves system instructions for answer generation,
// backed by the ai_configurations table with a short in-memory TTL so
// admin edits show up without a restart.
type InstructionCache struct {
	factory unitofwork.RepositoryFactory
	logger  logger.ILogger
	cache   *cache.Cache
}

func NewInstructionCache(factory unitofwork.RepositoryFactory, log logger.ILogger) *InstructionCache {
	// 5 minute TTL, purge expired entries every 10 minutes
	c := cache.New(5*time.Minute, 10*time.Minute)
	return &InstructionCache{
		factory: factory,
		logger:  log,
		cache:   c,
	}
}

func (ic *InstructionCache) SystemInstructions(ctx context.Context) string {
	if x, found := ic.cache.Get(instructionsCacheKey); found {
		return x.(string)
	}

	uow := ic.factory.NewUnitOfWork(ctx)
	config, err := uow.AiConfigRepository().FindConfigurationByKey(ctx, entity.AiConfigKeySystemInstructions)
	if err != nil {
		ic.logger.Warn("InstructionCache", "Failed to load system instructions, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return constant.DefaultSystemInstructions
	}

	instructions := constant.DefaultSystemInstructions
	if config != nil && config.Value != "" {
		instructions = config.Value
	}

	ic.cache.Set(instructionsCacheKey, instructions, cache.DefaultExpiration)
	return instructions
}
