package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeRefund     TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodMpesa  PaymentMethod = "mpesa"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodOther  PaymentMethod = "other"
)

// Transaction is the append-only record of wallet-affecting events.
// Rows are never deleted; state only moves forward via the wallet service.
type Transaction struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Type   TransactionType   `gorm:"type:varchar(20);not null" json:"type"`
	Amount int64             `gorm:"not null" json:"amount"`
	Status TransactionStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	FromID uuid.UUID  `gorm:"type:uuid;index;not null" json:"fromId"`
	ToID   *uuid.UUID `gorm:"type:uuid;index" json:"toId,omitempty"`
	TaskID *uuid.UUID `gorm:"type:uuid;index" json:"taskId,omitempty"`

	PaymentReference string        `gorm:"type:varchar(60)" json:"paymentReference,omitempty"`
	PaymentMethod    PaymentMethod `gorm:"type:varchar(20);default:'mpesa'" json:"paymentMethod"`
	Description      string        `gorm:"type:text" json:"description,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	From *User `gorm:"foreignKey:FromID" json:"from,omitempty"`
	To   *User `gorm:"foreignKey:ToID" json:"to,omitempty"`
	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
