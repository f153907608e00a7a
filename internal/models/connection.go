package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConnectionStatus string

const (
	ConnectionStatusPending   ConnectionStatus = "pending"
	ConnectionStatusAccepted  ConnectionStatus = "accepted"
	ConnectionStatusRejected  ConnectionStatus = "rejected"
	ConnectionStatusCompleted ConnectionStatus = "completed"
	ConnectionStatusCancelled ConnectionStatus = "cancelled"
)

type Initiator string

const (
	InitiatedByEmployer Initiator = "employer"
	InitiatedByTasker   Initiator = "tasker"
)

// Connection is the employer/tasker handshake for a task, distinct from
// direct assignment. The party who did NOT initiate is the one who accepts.
type Connection struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	EmployerID uuid.UUID `gorm:"type:uuid;index;not null" json:"employerId"`
	TaskerID   uuid.UUID `gorm:"type:uuid;index;not null" json:"taskerId"`
	TaskID     uuid.UUID `gorm:"type:uuid;index;not null" json:"taskId"`

	Status      ConnectionStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	InitiatedBy Initiator        `gorm:"type:varchar(20);not null" json:"initiatedBy"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Employer *User `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
	Tasker   *User `gorm:"foreignKey:TaskerID" json:"tasker,omitempty"`
	Task     *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (c *Connection) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Counterparty returns the user who must act on a pending connection.
func (c *Connection) Counterparty() uuid.UUID {
	if c.InitiatedBy == InitiatedByEmployer {
		return c.TaskerID
	}
	return c.EmployerID
}

// Involves reports whether the user is a party to the connection.
func (c *Connection) Involves(userID uuid.UUID) bool {
	return c.EmployerID == userID || c.TaskerID == userID
}
