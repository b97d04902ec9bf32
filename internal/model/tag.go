package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTagColor is applied when a tag is created without a color.
const DefaultTagColor = "#3B82F6"

type Tag struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_tags_user_name,priority:1"`
	Name        string    `gorm:"not null;uniqueIndex:uq_tags_user_name,priority:2"`
	Color       string    `gorm:"not null;default:'#3B82F6'"`
	Description *string
	IsActive    bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Owner User   `gorm:"foreignKey:UserID"`
	Tasks []Task `gorm:"many2many:task_tags"`
}
