package repository

import (
	"context"
	"strings"

	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"gorm.io/gorm"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Latest(ctx context.Context) (*model.Campaign, error) {
	var c model.Campaign
	if err := r.db.WithContext(ctx).Order("id desc").First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id uint) (*model.Campaign, error) {
	var c model.Campaign
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

type CampaignWithCount struct {
	model.Campaign
	ParticipantCount int64 `json:"participant_count"`
}

func (r *CampaignRepository) ListWithCounts(ctx context.Context) ([]*CampaignWithCount, error) {
	var list []*CampaignWithCount
	err := r.db.WithContext(ctx).
		Table("airdrop_campaigns AS c").
		Select("c.*, COALESCE(p.cnt, 0) AS participant_count").
		Joins("LEFT JOIN (SELECT campaign_id, COUNT(*) AS cnt FROM airdrop_participants GROUP BY campaign_id) p ON c.id = p.campaign_id").
		Order("c.id desc").
		Scan(&list).Error
	return list, err
}

// Activate makes id the only active campaign.
func (r *CampaignRepository) Activate(ctx context.Context, id uint) (*model.Campaign, error) {
	var c model.Campaign
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Campaign{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&model.Campaign{}).Where("id = ?", id).Update("is_active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&c, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Campaign{}).Where("id = ?", id).Updates(updates).Error
}

// CreateActive deactivates every campaign, inserts c as the active one and, when copyTasks is
// set, clones the previously active campaign's tasks onto it.
func (r *CampaignRepository) CreateActive(ctx context.Context, c *model.Campaign, copyTasks bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev model.Campaign
		hasPrev := tx.Where("is_active = ?", true).Order("id desc").Limit(1).Find(&prev).RowsAffected > 0

		if err := tx.Model(&model.Campaign{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		c.IsActive = true
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if !copyTasks || !hasPrev {
			return nil
		}

		var tasks []model.CampaignTask
		if err := tx.Where("campaign_id = ?", prev.ID).Find(&tasks).Error; err != nil {
			return err
		}
		for i := range tasks {
			tasks[i].ID = 0
			tasks[i].CampaignID = c.ID
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Select("*").Omit("id").Create(&tasks).Error
	})
}

func (r *CampaignRepository) SetBanner(ctx context.Context, id uint, url string) error {
	return r.db.WithContext(ctx).Model(&model.Campaign{}).Where("id = ?", id).Update("banner_url", url).Error
}

// --- Tasks ---

func (r *CampaignRepository) Tasks(ctx context.Context, campaignID uint, activeOnly bool) ([]*model.CampaignTask, error) {
	var list []*model.CampaignTask
	q := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("sort_order asc, id asc").Find(&list).Error
	return list, err
}

func (r *CampaignRepository) CreateTask(ctx context.Context, t *model.CampaignTask) error {
	return r.db.WithContext(ctx).Select("*").Omit("id").Create(t).Error
}

func (r *CampaignRepository) UpdateTask(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.CampaignTask{}).Where("id = ?", id).Updates(updates).Error
}

func (r *CampaignRepository) DeleteTask(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.CampaignTask{}, id).Error
}

// --- Participants ---

func (r *CampaignRepository) DistinctParticipants(ctx context.Context, campaignID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("campaign_id = ?", campaignID).
		Distinct("ip_hash").
		Count(&n).Error
	return n, err
}

func (r *CampaignRepository) FindParticipant(ctx context.Context, campaignID uint, ipHash string) (*model.Participant, error) {
	var p model.Participant
	if err := r.db.WithContext(ctx).Where("campaign_id = ? AND ip_hash = ?", campaignID, ipHash).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *CampaignRepository) CreateParticipant(ctx context.Context, p *model.Participant) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// UpdateParticipant refreshes a participant's progress; wallet is kept when the new one is nil.
func (r *CampaignRepository) UpdateParticipant(ctx context.Context, id uint, wallet *string, tasksJSON string, reward int64) error {
	return r.db.WithContext(ctx).Model(&model.Participant{}).Where("id = ?", id).Updates(map[string]interface{}{
		"tasks_completed": tasksJSON,
		"wallet_address":  gorm.Expr("COALESCE(?, wallet_address)", wallet),
		"total_reward":    reward,
	}).Error
}

func (r *CampaignRepository) Participants(ctx context.Context, campaignID uint, search string, page, size int) ([]*model.Participant, int64, error) {
	var list []*model.Participant
	var total int64
	offset, limit := pageOffset(page, size)
	search = strings.ToLower(strings.TrimSpace(search))

	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Participant{}).Where("campaign_id = ?", campaignID)
		if search != "" {
			q = q.Where("LOWER(x_username) LIKE ? OR LOWER(wallet_address) LIKE ?", "%"+search+"%", "%"+search+"%")
		}
		return q
	}
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := filtered().Order("created_at desc").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *CampaignRepository) AllParticipants(ctx context.Context, campaignID uint) ([]*model.Participant, error) {
	var list []*model.Participant
	err := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Order("created_at desc").Find(&list).Error
	return list, err
}

func (r *CampaignRepository) ClearParticipants(ctx context.Context, campaignID uint) error {
	return r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Delete(&model.Participant{}).Error
}
