package model

import (
	"time"
)

const (
	RoleYardWorker = "yard_worker"
	RoleClient     = "client"
)

type Account struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;default:yard_worker" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 关联
	Subscription *Subscription `gorm:"foreignKey:AccountID" json:"subscription,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}
