package wallet

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Skill{},
		&models.Task{},
		&models.Transaction{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, role models.Role, balance int64) *models.User {
	t.Helper()

	user := &models.User{
		Name:        "User " + uuid.NewString()[:8],
		PhoneNumber: "07" + uuid.NewString()[:8],
		NationalID:  uuid.NewString()[:12],
		Role:        role,
		Password:    "hashed",
		Location: models.Place{
			County:    "Nakuru",
			SubCounty: "Njoro",
			Village:   "Mau Narok",
		},
		WalletBalance: balance,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createAssignedTask(t *testing.T, db *gorm.DB, employer, tasker *models.User) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:       "Fence repair",
		Description: "Fix the perimeter fence",
		EmployerID:  employer.ID,
		TaskerID:    &tasker.ID,
		Status:      models.TaskStatusAssigned,
		Location:    employer.Location,
		Payment:     models.TaskPayment{Amount: 500, Status: models.PaymentStatusPending},
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func balanceOf(t *testing.T, db *gorm.DB, id uuid.UUID) int64 {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return user.WalletBalance
}

func TestDeposit(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 0)

	trx, err := svc.Deposit(employer.ID, 1000, models.PaymentMethodMpesa, "MPESA123")
	require.NoError(t, err)
	require.Equal(t, models.TransactionTypeDeposit, trx.Type)
	require.Equal(t, models.TransactionStatusCompleted, trx.Status)
	require.NotNil(t, trx.CompletedAt)
	require.Equal(t, int64(1000), balanceOf(t, db, employer.ID))
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 250)

	for _, amount := range []int64{0, -50} {
		_, err := svc.Deposit(employer.ID, amount, models.PaymentMethodMpesa, "")
		require.ErrorIs(t, err, ErrInvalidAmount)
	}

	// balance untouched, no ledger rows written
	require.Equal(t, int64(250), balanceOf(t, db, employer.ID))
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreatePayment(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 1000)
	tasker := createUser(t, db, models.RoleTasker, 0)
	task := createAssignedTask(t, db, employer, tasker)

	trx, err := svc.CreatePayment(employer.ID, task.ID, 600)
	require.NoError(t, err)
	require.Equal(t, models.TransactionTypePayment, trx.Type)
	require.Equal(t, models.TransactionStatusPending, trx.Status)
	require.Equal(t, int64(400), balanceOf(t, db, employer.ID))

	var got models.Task
	require.NoError(t, db.First(&got, "id = ?", task.ID).Error)
	require.Equal(t, models.PaymentStatusEscrow, got.Payment.Status)
	require.Equal(t, int64(600), got.Payment.Amount)
	require.NotNil(t, got.Payment.TransactionID)
	require.Equal(t, trx.ID, *got.Payment.TransactionID)

	// funds are held, not yet credited to the tasker
	require.Zero(t, balanceOf(t, db, tasker.ID))
}

func TestCreatePaymentInsufficientFunds(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 100)
	tasker := createUser(t, db, models.RoleTasker, 0)
	task := createAssignedTask(t, db, employer, tasker)

	_, err := svc.CreatePayment(employer.ID, task.ID, 500)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// the rollback leaves no trace: balance, task and ledger unchanged
	require.Equal(t, int64(100), balanceOf(t, db, employer.ID))
	var got models.Task
	require.NoError(t, db.First(&got, "id = ?", task.ID).Error)
	require.Equal(t, models.PaymentStatusPending, got.Payment.Status)
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreatePaymentRequiresAssignedTasker(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 1000)

	task := &models.Task{
		Title:       "Open task",
		Description: "Nobody assigned yet",
		EmployerID:  employer.ID,
		Status:      models.TaskStatusOpen,
		Location:    employer.Location,
		Payment:     models.TaskPayment{Amount: 300, Status: models.PaymentStatusPending},
	}
	require.NoError(t, db.Create(task).Error)

	_, err := svc.CreatePayment(employer.ID, task.ID, 300)
	require.ErrorIs(t, err, ErrNoAssignedTasker)
	require.Equal(t, int64(1000), balanceOf(t, db, employer.ID))
}

func TestReleasePayment(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 1000)
	tasker := createUser(t, db, models.RoleTasker, 0)
	task := createAssignedTask(t, db, employer, tasker)

	trx, err := svc.CreatePayment(employer.ID, task.ID, 600)
	require.NoError(t, err)

	released, err := svc.ReleasePayment(trx.ID, employer.ID, models.RoleEmployer)
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusCompleted, released.Status)
	require.NotNil(t, released.CompletedAt)

	require.Equal(t, int64(600), balanceOf(t, db, tasker.ID))
	require.Equal(t, int64(400), balanceOf(t, db, employer.ID))

	var got models.Task
	require.NoError(t, db.First(&got, "id = ?", task.ID).Error)
	require.Equal(t, models.PaymentStatusReleased, got.Payment.Status)
}

func TestReleasePaymentOnlyByPayer(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 1000)
	tasker := createUser(t, db, models.RoleTasker, 0)
	task := createAssignedTask(t, db, employer, tasker)

	trx, err := svc.CreatePayment(employer.ID, task.ID, 600)
	require.NoError(t, err)

	// the tasker cannot release their own payment
	_, err = svc.ReleasePayment(trx.ID, tasker.ID, models.RoleTasker)
	require.ErrorIs(t, err, ErrNotPayer)
	require.Zero(t, balanceOf(t, db, tasker.ID))

	// an admin can
	admin := createUser(t, db, models.RoleAdmin, 0)
	_, err = svc.ReleasePayment(trx.ID, admin.ID, models.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, int64(600), balanceOf(t, db, tasker.ID))
}

func TestReleasePaymentTwice(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 1000)
	tasker := createUser(t, db, models.RoleTasker, 0)
	task := createAssignedTask(t, db, employer, tasker)

	trx, err := svc.CreatePayment(employer.ID, task.ID, 600)
	require.NoError(t, err)

	_, err = svc.ReleasePayment(trx.ID, employer.ID, models.RoleEmployer)
	require.NoError(t, err)

	_, err = svc.ReleasePayment(trx.ID, employer.ID, models.RoleEmployer)
	require.ErrorIs(t, err, ErrNotReleasable)

	// no double credit
	require.Equal(t, int64(600), balanceOf(t, db, tasker.ID))
}

func TestReleaseRejectsDeposits(t *testing.T) {
	db := setupDB(t)
	svc := New(db)
	employer := createUser(t, db, models.RoleEmployer, 0)

	trx, err := svc.Deposit(employer.ID, 500, models.PaymentMethodMpesa, "")
	require.NoError(t, err)

	_, err = svc.ReleasePayment(trx.ID, employer.ID, models.RoleEmployer)
	require.ErrorIs(t, err, ErrNotReleasable)
}
