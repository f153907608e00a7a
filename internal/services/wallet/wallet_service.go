package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/models"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds in wallet")
	ErrNoAssignedTasker  = errors.New("task does not have an assigned tasker")
	ErrNotReleasable     = errors.New("transaction is not a pending payment")
	ErrNotPayer          = errors.New("caller is not the payer of this transaction")
)

// Service moves money between wallets. Every operation runs inside a single
// DB transaction and mutates balances with balance = balance +/- expressions,
// so concurrent requests against the same wallet cannot lose updates and a
// failed step rolls the whole operation back. The transactions table is the
// append-only ledger behind the balances.
type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Deposit credits the user's wallet and records a completed deposit.
// External confirmation is not modeled; the ledger row completes immediately.
func (s *Service) Deposit(userID uuid.UUID, amount int64, method models.PaymentMethod, reference string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if method == "" {
		method = models.PaymentMethodMpesa
	}

	now := time.Now()
	trx := &models.Transaction{
		Type:             models.TransactionTypeDeposit,
		Amount:           amount,
		Status:           models.TransactionStatusCompleted,
		FromID:           userID,
		PaymentReference: reference,
		PaymentMethod:    method,
		Description:      "Wallet deposit",
		CompletedAt:      &now,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trx).Error; err != nil {
			return err
		}

		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("wallet_balance", gorm.Expr("wallet_balance + ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// CreatePayment places funds for a task in escrow: the employer's wallet is
// debited, a pending payment ledger row is written, and the task's payment
// block moves to escrow. The debit carries a wallet_balance >= amount guard;
// zero rows affected means insufficient funds.
func (s *Service) CreatePayment(employerID uuid.UUID, taskID uuid.UUID, amount int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var trx *models.Transaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return err
		}
		if task.TaskerID == nil {
			return ErrNoAssignedTasker
		}

		result := tx.Model(&models.User{}).
			Where("id = ? AND wallet_balance >= ?", employerID, amount).
			Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientFunds
		}

		trx = &models.Transaction{
			Type:          models.TransactionTypePayment,
			Amount:        amount,
			Status:        models.TransactionStatusPending,
			FromID:        employerID,
			ToID:          task.TaskerID,
			TaskID:        &task.ID,
			PaymentMethod: models.PaymentMethodWallet,
			Description:   "Payment for task: " + task.Title,
		}
		if err := tx.Create(trx).Error; err != nil {
			return err
		}

		return tx.Model(&task).Updates(map[string]interface{}{
			"payment_amount":         amount,
			"payment_status":         models.PaymentStatusEscrow,
			"payment_transaction_id": trx.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// ReleasePayment settles a pending payment: the ledger row completes, the
// task's payment block moves to released, and the tasker's wallet is
// credited. Only the original payer or an admin may release.
func (s *Service) ReleasePayment(trxID uuid.UUID, callerID uuid.UUID, role models.Role) (*models.Transaction, error) {
	var trx models.Transaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trx, "id = ?", trxID).Error; err != nil {
			return err
		}
		if trx.Type != models.TransactionTypePayment || trx.Status != models.TransactionStatusPending {
			return ErrNotReleasable
		}
		if trx.FromID != callerID && !role.IsAdmin() {
			return ErrNotPayer
		}

		now := time.Now()
		if err := tx.Model(&trx).Updates(map[string]interface{}{
			"status":       models.TransactionStatusCompleted,
			"completed_at": now,
		}).Error; err != nil {
			return err
		}

		if trx.TaskID != nil {
			if err := tx.Model(&models.Task{}).
				Where("id = ?", *trx.TaskID).
				Update("payment_status", models.PaymentStatusReleased).Error; err != nil {
				return err
			}
		}

		if trx.ToID != nil {
			result := tx.Model(&models.User{}).
				Where("id = ?", *trx.ToID).
				Update("wallet_balance", gorm.Expr("wallet_balance + ?", trx.Amount))
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// Balance returns the user's current wallet balance.
func (s *Service) Balance(userID uuid.UUID) (int64, error) {
	var user models.User
	if err := s.DB.Select("wallet_balance").First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}
	return user.WalletBalance, nil
}
