package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusEscrow    PaymentStatus = "escrow"
	PaymentStatusReleased  PaymentStatus = "released"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// TaskPayment tracks the escrow state of the task's payment. Transaction
// points at the ledger row once an escrow payment has been created.
type TaskPayment struct {
	Amount        int64         `gorm:"not null" json:"amount"`
	Status        PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	TransactionID *uuid.UUID    `gorm:"type:uuid" json:"transaction,omitempty"`
}

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"size:100;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`

	EmployerID uuid.UUID  `gorm:"type:uuid;index;not null" json:"employerId"`
	TaskerID   *uuid.UUID `gorm:"type:uuid;index" json:"taskerId,omitempty"`

	RequiredSkills []Skill `gorm:"many2many:task_skills" json:"requiredSkills,omitempty"`

	Location Place `gorm:"embedded;embeddedPrefix:location_" json:"location"`

	Status  TaskStatus  `gorm:"type:varchar(20);default:'open';index" json:"status"`
	Payment TaskPayment `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	Images datatypes.JSON `json:"images,omitempty"`

	StartDate      *time.Time `json:"startDate,omitempty"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Employer *User `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
	Tasker   *User `gorm:"foreignKey:TaskerID" json:"tasker,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// OwnedBy reports whether the given user controls the task's
// employer-side fields.
func (t *Task) OwnedBy(userID uuid.UUID, role Role) bool {
	return t.EmployerID == userID || role.IsAdmin()
}

// AssignedTo reports whether the given user is the assigned tasker.
func (t *Task) AssignedTo(userID uuid.UUID, role Role) bool {
	if role.IsAdmin() {
		return true
	}
	return t.TaskerID != nil && *t.TaskerID == userID
}
