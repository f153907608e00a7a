package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// One review per (reviewer, task) pair.
	ReviewerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviewer_task" json:"reviewerId"`
	TaskID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviewer_task" json:"taskId"`
	RevieweeID uuid.UUID `gorm:"type:uuid;index;not null" json:"revieweeId"`

	Rating  int    `gorm:"not null" json:"rating"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Reviewee *User `gorm:"foreignKey:RevieweeID" json:"reviewee,omitempty"`
	Task     *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
