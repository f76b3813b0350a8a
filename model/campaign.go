package model

import "time"

type Campaign struct {
	ID            uint       `gorm:"primaryKey;column:id" json:"id"`
	Title         string     `gorm:"column:title;type:text" json:"title"`
	Description   string     `gorm:"column:description;type:text" json:"description"`
	BannerURL     string     `gorm:"column:banner_url;type:text" json:"banner_url"`
	StartDate     *time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate       *time.Time `gorm:"column:end_date" json:"end_date"`
	IsActive      bool       `gorm:"column:is_active;not null" json:"is_active"`
	MaxWinners    int        `gorm:"column:max_winners;default:200" json:"max_winners"`
	RewardPerUser int64      `gorm:"column:reward_per_user;default:50000" json:"reward_per_user"`
	TotalPrize    string     `gorm:"column:total_prize;type:varchar(128)" json:"total_prize"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "airdrop_campaigns"
}

type CampaignTask struct {
	ID         uint   `gorm:"primaryKey;column:id" json:"id"`
	CampaignID uint   `gorm:"column:campaign_id;index;not null" json:"campaign_id"`
	TaskKey    string `gorm:"column:task_key;type:varchar(64)" json:"task_key"`
	Label      string `gorm:"column:label;type:text" json:"label"`
	Points     int    `gorm:"column:points;default:10" json:"points"`
	TaskType   string `gorm:"column:task_type;type:varchar(32);default:'action'" json:"task_type"`
	ActionURL  string `gorm:"column:action_url;type:text" json:"action_url"`
	ButtonText string `gorm:"column:button_text;type:varchar(64)" json:"button_text"`
	IconType   string `gorm:"column:icon_type;type:varchar(32);default:'wallet'" json:"icon_type"`
	SortOrder  int    `gorm:"column:sort_order;default:0" json:"sort_order"`
	IsLocked   bool   `gorm:"column:is_locked;default:false" json:"is_locked"`
	IsActive   bool   `gorm:"column:is_active" json:"is_active"`
}

func (CampaignTask) TableName() string {
	return "airdrop_tasks"
}

type Participant struct {
	ID             uint      `gorm:"primaryKey;column:id" json:"id"`
	CampaignID     uint      `gorm:"column:campaign_id;not null;uniqueIndex:idx_campaign_ip,priority:1" json:"campaign_id"`
	XUsername      string    `gorm:"column:x_username;type:varchar(64)" json:"x_username"`
	WalletAddress  *string   `gorm:"column:wallet_address;type:varchar(42)" json:"wallet_address"`
	IPAddress      string    `gorm:"column:ip_address;type:varchar(64)" json:"ip_address"`
	IPHash         string    `gorm:"column:ip_hash;type:varchar(64);uniqueIndex:idx_campaign_ip,priority:2" json:"-"`
	TasksCompleted string    `gorm:"column:tasks_completed;type:text" json:"tasks_completed"` // JSON object keyed by task key
	TotalReward    int64     `gorm:"column:total_reward" json:"total_reward"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Participant) TableName() string {
	return "airdrop_participants"
}
