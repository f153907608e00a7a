package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/models"
	"github.com/kazilink/backend/internal/services/wallet"
	"github.com/kazilink/backend/internal/utils"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

// newTestEnv spins up the API against an in-memory database, mirroring the
// wiring in cmd/api without Redis, Daraja or the websocket hub.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Skill{},
		&models.Location{},
		&models.Task{},
		&models.Connection{},
		&models.Review{},
		&models.Transaction{},
	))

	authH := &AuthHandler{DB: db, JWTSecret: testJWTSecret, Expires: 60}
	taskH := NewTaskHandler(db, nil)
	connectionH := NewConnectionHandler(db, nil)
	reviewH := NewReviewHandler(db)
	transactionH := NewTransactionHandler(db, wallet.New(db), nil, nil)
	skillH := NewSkillHandler(db)
	locationH := NewLocationHandler(db, nil)
	searchH := NewSearchHandler(db)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})

	api := app.Group("/api/v1")

	api.Post("/auth/register", authH.Register)
	api.Post("/auth/register/tasker", authH.RegisterTasker)
	api.Post("/auth/login", authH.Login)
	api.Get("/auth/logout", authH.Logout)
	api.Get("/skills", skillH.List)
	api.Get("/skills/category/:category", skillH.ByCategory)
	api.Get("/locations/counties", locationH.Counties)
	api.Get("/locations/county/:county/subcounties", locationH.SubCounties)
	api.Get("/locations/county/:county/subcounty/:subcounty/villages", locationH.Villages)
	api.Get("/tasks", taskH.List)
	api.Get("/search/tasks", searchH.Tasks)
	api.Get("/search/taskers", searchH.Taskers)
	api.Get("/reviews", reviewH.List)
	api.Get("/reviews/user/:userId", reviewH.ForUser)
	api.Get("/reviews/task/:taskId", reviewH.ForTask)

	protected := api.Group("/",
		middleware.JWTAuth(testJWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/auth/me", authH.Me)
	protected.Put("/auth/updatedetails", authH.UpdateDetails)
	protected.Put("/auth/updatepassword", authH.UpdatePassword)

	protected.Post("/tasks", taskH.Create)
	protected.Get("/tasks/my-tasks", taskH.MyTasks)
	api.Get("/tasks/:id", taskH.Get)
	protected.Put("/tasks/:id", taskH.Update)
	protected.Delete("/tasks/:id", taskH.Delete)
	protected.Put("/tasks/:id/assign", taskH.Assign)
	protected.Put("/tasks/:id/progress", taskH.Progress)
	protected.Put("/tasks/:id/complete", taskH.Complete)
	protected.Put("/tasks/:id/cancel", taskH.Cancel)

	protected.Get("/connections", middleware.RequireRoles(models.RoleAdmin), connectionH.List)
	protected.Post("/connections", connectionH.Create)
	protected.Get("/connections/my-connections", connectionH.MyConnections)
	protected.Get("/connections/:id", connectionH.Get)
	protected.Put("/connections/:id/accept", connectionH.Accept)
	protected.Put("/connections/:id/reject", connectionH.Reject)
	protected.Put("/connections/:id/complete", connectionH.Complete)

	protected.Post("/reviews", reviewH.Create)
	protected.Put("/reviews/:id", reviewH.Update)
	protected.Delete("/reviews/:id", reviewH.Delete)

	protected.Get("/transactions", middleware.RequireRoles(models.RoleAdmin), transactionH.List)
	protected.Get("/transactions/my-transactions", transactionH.MyTransactions)
	protected.Get("/transactions/wallet", transactionH.WalletBalance)
	protected.Post("/transactions/deposit", transactionH.Deposit)
	protected.Post("/transactions/payment", transactionH.CreatePayment)
	protected.Put("/transactions/:id/release", transactionH.Release)

	protected.Post("/skills", middleware.RequireRoles(models.RoleAdmin), skillH.Create)
	protected.Put("/skills/:id", middleware.RequireRoles(models.RoleAdmin), skillH.Update)
	protected.Delete("/skills/:id", middleware.RequireRoles(models.RoleAdmin), skillH.Delete)
	protected.Post("/locations", middleware.RequireRoles(models.RoleAdmin), locationH.Create)

	return &testEnv{app: app, db: db}
}

func (e *testEnv) createUser(t *testing.T, role models.Role, balance int64) *models.User {
	t.Helper()

	hashed, err := utils.HashPassword("secret123")
	require.NoError(t, err)

	user := &models.User{
		Name:        "User " + uuid.NewString()[:8],
		PhoneNumber: "07" + uuid.NewString()[:8],
		NationalID:  uuid.NewString()[:12],
		Role:        role,
		Password:    hashed,
		Location: models.Place{
			County:    "Nakuru",
			SubCounty: "Njoro",
			Village:   "Mau Narok",
		},
		Availability:  true,
		WalletBalance: balance,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := utils.SignJWT(testJWTSecret, user.ID.String(), string(user.Role), 60)
	require.NoError(t, err)
	return token
}

func (e *testEnv) createTask(t *testing.T, employer *models.User, status models.TaskStatus, tasker *models.User) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:       "Fence repair",
		Description: "Fix the perimeter fence",
		EmployerID:  employer.ID,
		Status:      status,
		Location:    employer.Location,
		Payment:     models.TaskPayment{Amount: 500, Status: models.PaymentStatusPending},
	}
	if tasker != nil {
		task.TaskerID = &tasker.ID
	}
	require.NoError(t, e.db.Create(task).Error)
	return task
}

// request performs a JSON request and decodes the envelope.
func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope), "body: %s", raw)
	}
	return resp.StatusCode, envelope
}
