package model

import (
	"time"
)

// Profile 服务者在市场上的公开资料，每个账号至多一份
type Profile struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	AccountID int64     `gorm:"not null;uniqueIndex" json:"account_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Location  string    `gorm:"size:200;not null" json:"location"`
	Zip       string    `gorm:"size:20;not null;index" json:"zip"`
	Age       int       `json:"age"`
	Price     float64   `gorm:"index" json:"price"` // 每小时价格
	Email     string    `gorm:"size:100" json:"email"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Photo     *string   `gorm:"size:500" json:"photo,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Account  *Account           `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	Services []*ServiceCategory `gorm:"many2many:profile_services;constraint:OnDelete:CASCADE" json:"services"`
}

func (Profile) TableName() string {
	return "profiles"
}

// ServiceNames 返回服务标签名称列表
func (p *Profile) ServiceNames() []string {
	names := make([]string, 0, len(p.Services))
	for _, s := range p.Services {
		names = append(names, s.Name)
	}
	return names
}

type ServiceCategory struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

func (ServiceCategory) TableName() string {
	return "service_categories"
}
