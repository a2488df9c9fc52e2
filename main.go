package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"healup/internal/config"
	"healup/internal/database"
	"healup/internal/handlers"
	"healup/internal/metrics"
	"healup/internal/middleware"
	"healup/internal/models"
	"healup/internal/notify"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureMedicineIndexes(db); err != nil {
		log.Printf("medicine index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}

	var mailer notify.Mailer
	if config.AppEnv.SMTPHost != "" {
		mailer = &notify.SMTPMailer{
			Host:     config.AppEnv.SMTPHost,
			Port:     config.AppEnv.SMTPPort,
			Username: config.AppEnv.SMTPUser,
			Password: config.AppEnv.SMTPPassword,
			From:     config.AppEnv.SMTPFrom,
		}
	} else {
		log.Println("SMTP_HOST not set, mail goes to the log")
		mailer = notify.LogMailer{}
	}

	serverMetrics := metrics.NewServerMetrics()
	secret := config.AppEnv.JWTSecret

	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(serverMetrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.AppEnv.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/metrics", metrics.Handler())

	auth := r.Group("/auth")
	{
		auth.POST("/signup", handlers.Signup(db, secret, mailer))
		auth.GET("/verify/:token", handlers.VerifyAccount(db, secret))
		auth.POST("/login", handlers.Login(db, secret, config.AppEnv.TokenTTL))
		auth.GET("/profile",
			middleware.AuthGuard(secret, models.RoleAdmin, models.RoleUser, models.RoleSuperAdmin),
			handlers.Profile(db))
		auth.POST("/forget-password", handlers.ForgetPassword(db, mailer, config.AppEnv.OTPTTL))
		auth.POST("/reset-password", handlers.ResetPassword(db))
	}

	medicine := r.Group("/medicine")
	{
		medicine.GET("", handlers.ListMedicines(db))
		medicine.GET("/:id", handlers.GetMedicine(db))

		adminOnly := middleware.AuthGuard(secret, models.RoleAdmin, models.RoleSuperAdmin)
		medicine.POST("", adminOnly, handlers.CreateMedicine(db))
		medicine.PUT("/:id", adminOnly, handlers.UpdateMedicine(db))
		medicine.DELETE("/:id", adminOnly, handlers.DeleteMedicine(db))
	}

	cart := r.Group("/cart")
	cart.Use(middleware.AuthGuard(secret, models.RoleAdmin, models.RoleUser))
	{
		cart.POST("/add", handlers.AddToCart(db))
		cart.GET("", handlers.GetCart(db))
		cart.DELETE("/:medicineId", handlers.RemoveFromCart(db))
	}

	order := r.Group("/order")
	{
		placer := middleware.AuthGuard(secret, models.RoleAdmin, models.RoleUser)
		order.POST("", placer, handlers.CreateOrder(db, serverMetrics))
		order.GET("", placer, handlers.ListOrders(db))
		order.GET("/:id", placer, handlers.GetOrder(db))

		adminOnly := middleware.AuthGuard(secret, models.RoleAdmin, models.RoleSuperAdmin)
		order.PUT("/:id", adminOnly, handlers.UpdateOrder(db))
		order.DELETE("/:id", adminOnly, handlers.DeleteOrder(db))
	}

	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal(err)
	}
}
