package implementation

import (
	"context"
	"errors"

	"askdocs-be/internal/entity"
	"askdocs-be/internal/mapper"
	"askdocs-be/internal/model"
	"askdocs-be/internal/repository/contract"

	"gorm.io/gorm"
)

type AiConfigRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AiConfigMapper
}

func NewAiConfigRepository(db *gorm.DB) contract.IAiConfigRepository {
	return &AiConfigRepositoryImpl{
		db:     db,
		mapper: mapper.NewAiConfigMapper(),
	}
}

func (r *AiConfigRepositoryImpl) FindConfigurationByKey(ctx context.Context, key string) (*entity.AiConfiguration, error) {
	var m model.AiConfiguration
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AiConfigRepositoryImpl) CreateConfiguration(ctx context.Context, config *entity.AiConfiguration) error {
	m := r.mapper.ToModel(config)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*config = *r.mapper.ToEntity(m)
	return nil
}

func (r *AiConfigRepositoryImpl) UpdateConfiguration(ctx context.Context, config *entity.AiConfiguration) error {
	m := r.mapper.ToModel(config)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*config = *r.mapper.ToEntity(m)
	return nil
}
