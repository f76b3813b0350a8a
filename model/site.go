package model

import "time"

type SiteSetting struct {
	Key       string    `gorm:"primaryKey;column:key;type:varchar(64)" json:"key"`
	Value     string    `gorm:"column:value;type:text" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SiteSetting) TableName() string {
	return "site_settings"
}

type Chat struct {
	ID        string `gorm:"primaryKey;column:id;type:varchar(64)" json:"id"`
	IPAddress string `gorm:"column:ip_address;type:varchar(64);index" json:"-"`
	Title     string `gorm:"column:title;type:text" json:"title"`
	Messages  string `gorm:"column:messages;type:text" json:"messages,omitempty"`
	CreatedAt int64  `gorm:"column:created_at;autoCreateTime:milli" json:"created_at"`
	UpdatedAt int64  `gorm:"column:updated_at;autoUpdateTime:milli" json:"updated_at"`
}

func (Chat) TableName() string {
	return "tordai_chats"
}
