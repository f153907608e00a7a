package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Skill is the admin-managed catalog entry referenced by tasks and taskers.
type Skill struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Category    string    `gorm:"index;not null" json:"category"`
	Description string    `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Skill) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
