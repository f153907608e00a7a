package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/models"
	"github.com/kazilink/backend/internal/realtime"
	"github.com/kazilink/backend/internal/services/mpesa"
	"github.com/kazilink/backend/internal/services/wallet"
)

type TransactionHandler struct {
	DB     *gorm.DB
	Wallet *wallet.Service
	Mpesa  *mpesa.Service // nil when Daraja is not configured
	Hub    *realtime.Hub
}

func NewTransactionHandler(db *gorm.DB, walletSvc *wallet.Service, mpesaSvc *mpesa.Service, hub *realtime.Hub) *TransactionHandler {
	return &TransactionHandler{DB: db, Wallet: walletSvc, Mpesa: mpesaSvc, Hub: hub}
}

func transactionPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("From", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "phone_number") }).
		Preload("To", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "phone_number") }).
		Preload("Task")
}

// List returns the whole ledger. Admin only.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	var transactions []models.Transaction
	if err := transactionPreloads(h.DB).Order("created_at DESC").Find(&transactions).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(transactions),
		"data":    transactions,
	})
}

// MyTransactions returns ledger rows where the caller is payer or payee.
func (h *TransactionHandler) MyTransactions(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)

	var transactions []models.Transaction
	if err := transactionPreloads(h.DB).
		Where("from_id = ? OR to_id = ?", callerID, callerID).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(transactions),
		"data":    transactions,
	})
}

func (h *TransactionHandler) WalletBalance(c *fiber.Ctx) error {
	balance, err := h.Wallet.Balance(middleware.CallerID(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"balance": balance},
	})
}

type DepositReq struct {
	Amount           int64  `json:"amount"`
	PaymentReference string `json:"paymentReference"`
	PaymentMethod    string `json:"paymentMethod"`
	PhoneNumber      string `json:"phoneNumber"`
}

// Deposit credits the caller's wallet. When Daraja is configured and the
// method is mpesa, an STK push goes out first; a gateway failure means no
// ledger entry is written.
func (h *TransactionHandler) Deposit(c *fiber.Ctx) error {
	var req DepositReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a valid amount")
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = models.PaymentMethodMpesa
	}

	reference := req.PaymentReference
	if method == models.PaymentMethodMpesa && h.Mpesa != nil {
		resp, err := h.Mpesa.STKPush(req.PhoneNumber, req.Amount, reference)
		if err != nil {
			log.Printf("daraja: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Payment gateway error")
		}
		reference = resp.CheckoutRequestID
	}

	trx, err := h.Wallet.Deposit(middleware.CallerID(c), req.Amount, method, reference)
	if err != nil {
		return walletError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    trx,
	})
}

type PaymentReq struct {
	TaskID uuid.UUID `json:"taskId"`
	Amount int64     `json:"amount"`
}

// CreatePayment places task funds in escrow. Caller must own the task.
func (h *TransactionHandler) CreatePayment(c *fiber.Ctx) error {
	var req PaymentReq
	if err := c.BodyParser(&req); err != nil || req.TaskID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a task ID and amount")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", req.TaskID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Task not found")
	}
	if !task.OwnedBy(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to create payment for this task")
	}

	trx, err := h.Wallet.CreatePayment(middleware.CallerID(c), task.ID, req.Amount)
	if err != nil {
		return walletError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    trx,
	})
}

// Release settles a pending escrow payment to the tasker.
func (h *TransactionHandler) Release(c *fiber.Ctx) error {
	trxID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid transaction ID")
	}

	trx, err := h.Wallet.ReleasePayment(trxID, middleware.CallerID(c), middleware.CallerRole(c))
	if err != nil {
		return walletError(err)
	}

	if h.Hub != nil && trx.ToID != nil {
		h.Hub.Notify(*trx.ToID, realtime.EventPaymentReleased, trx)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    trx,
	})
}

// walletError maps wallet service errors onto the HTTP taxonomy.
func walletError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrNoAssignedTasker),
		errors.Is(err, wallet.ErrNotReleasable):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, wallet.ErrNotPayer):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Resource not found")
	default:
		return err
	}
}
