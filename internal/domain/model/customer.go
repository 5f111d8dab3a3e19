package model

import "time"

// 顧客。コアからは読み取り専用（作成はインポートのみ）。
type Customer struct {
	ID       string  `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name     string  `gorm:"type:varchar(255);not null" json:"name"`
	Email    string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Age      *int    `json:"age,omitempty"`
	Location *string `gorm:"type:varchar(255)" json:"location,omitempty"`
	Gender   *string `gorm:"type:varchar(50)" json:"gender,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
