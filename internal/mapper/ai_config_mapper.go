package mapper

import (
	"askdocs-be/internal/entity"
	"askdocs-be/internal/model"
)

type AiConfigMapper struct{}

func NewAiConfigMapper() *AiConfigMapper {
	return &AiConfigMapper{}
}

func (m *AiConfigMapper) ToEntity(c *model.AiConfiguration) *entity.AiConfiguration {
	if c == nil {
		return nil
	}
	return &entity.AiConfiguration{
		Id:          c.Id,
		Key:         c.Key,
		Value:       c.Value,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (m *AiConfigMapper) ToModel(c *entity.AiConfiguration) *model.AiConfiguration {
	if c == nil {
		return nil
	}
	return &model.AiConfiguration{
		Id:          c.Id,
		Key:         c.Key,
		Value:       c.Value,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
