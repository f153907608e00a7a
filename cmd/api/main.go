package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/kazilink/backend/internal/config"
	"github.com/kazilink/backend/internal/db"
	"github.com/kazilink/backend/internal/handlers"
	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/models"
	"github.com/kazilink/backend/internal/realtime"
	"github.com/kazilink/backend/internal/services/mpesa"
	"github.com/kazilink/backend/internal/services/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Skill{},
		&models.Location{},
		&models.Task{},
		&models.Connection{},
		&models.Review{},
		&models.Transaction{},
	); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unavailable, location cache disabled: %v", err)
		rdb = nil
	}

	hub := realtime.NewHub()
	go hub.Run()

	walletSvc := wallet.New(gdb)
	mpesaSvc := mpesa.New(cfg.MpesaConsumerKey, cfg.MpesaConsumerSecret, cfg.MpesaTokenURL, cfg.MpesaShortCode)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	taskH := handlers.NewTaskHandler(gdb, hub)
	connectionH := handlers.NewConnectionHandler(gdb, hub)
	reviewH := handlers.NewReviewHandler(gdb)
	transactionH := handlers.NewTransactionHandler(gdb, walletSvc, mpesaSvc, hub)
	skillH := handlers.NewSkillHandler(gdb)
	locationH := handlers.NewLocationHandler(gdb, rdb)
	searchH := handlers.NewSearchHandler(gdb)
	uploadH := handlers.NewUploadHandler(gdb, cfg.UploadDir, cfg.MaxUploadSize)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Static("/uploads", cfg.UploadDir)

	api := app.Group("/api/v1")

	// public
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

	// protected
	protected := api.Group("/",
		middleware.JWTAuth(cfg.JWTSecret),
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

	protected.Get("/connections",
		middleware.RequireRoles(models.RoleAdmin),
		connectionH.List,
	)
	protected.Post("/connections", connectionH.Create)
	protected.Get("/connections/my-connections", connectionH.MyConnections)
	protected.Get("/connections/:id", connectionH.Get)
	protected.Put("/connections/:id/accept", connectionH.Accept)
	protected.Put("/connections/:id/reject", connectionH.Reject)
	protected.Put("/connections/:id/complete", connectionH.Complete)

	protected.Post("/reviews", reviewH.Create)
	protected.Put("/reviews/:id", reviewH.Update)
	protected.Delete("/reviews/:id", reviewH.Delete)

	protected.Get("/transactions",
		middleware.RequireRoles(models.RoleAdmin),
		transactionH.List,
	)
	protected.Get("/transactions/my-transactions", transactionH.MyTransactions)
	protected.Get("/transactions/wallet", transactionH.WalletBalance)
	protected.Post("/transactions/deposit", transactionH.Deposit)
	protected.Post("/transactions/payment", transactionH.CreatePayment)
	protected.Put("/transactions/:id/release", transactionH.Release)

	protected.Post("/skills",
		middleware.RequireRoles(models.RoleAdmin),
		skillH.Create,
	)
	protected.Put("/skills/:id",
		middleware.RequireRoles(models.RoleAdmin),
		skillH.Update,
	)
	protected.Delete("/skills/:id",
		middleware.RequireRoles(models.RoleAdmin),
		skillH.Delete,
	)

	protected.Post("/locations",
		middleware.RequireRoles(models.RoleAdmin),
		locationH.Create,
	)

	protected.Put("/upload/profile", uploadH.Profile)
	protected.Put("/upload/task/:id", uploadH.Task)

	// notification stream, authenticated via ?token=
	app.Get("/ws/notifications", websocket.New(realtime.WebSocketHandler(hub, cfg.JWTSecret)))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
