package repository

import (
	"context"

	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) ListByIP(ctx context.Context, ip string, limit int) ([]*model.Chat, error) {
	var list []*model.Chat
	err := r.db.WithContext(ctx).
		Select("id", "title", "created_at", "updated_at").
		Where("ip_address = ?", ip).
		Order("updated_at desc").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Upsert creates the chat or, if the id exists, renames it and bumps updated_at.
func (r *ChatRepository) Upsert(ctx context.Context, c *model.Chat) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
	}).Create(c).Error
}

func (r *ChatRepository) Get(ctx context.Context, id, ip string) (*model.Chat, error) {
	var c model.Chat
	if err := r.db.WithContext(ctx).Where("id = ? AND ip_address = ?", id, ip).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ChatRepository) Update(ctx context.Context, id, ip string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ? AND ip_address = ?", id, ip).Updates(updates).Error
}

func (r *ChatRepository) Delete(ctx context.Context, id, ip string) error {
	return r.db.WithContext(ctx).Where("id = ? AND ip_address = ?", id, ip).Delete(&model.Chat{}).Error
}
