package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"impulse-backend/internal/config"
	"impulse-backend/internal/database"
	"impulse-backend/internal/handlers"
	"impulse-backend/internal/middleware"
	"impulse-backend/internal/models"
	"impulse-backend/internal/notify"
	"impulse-backend/internal/orders"
	"impulse-backend/internal/store"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureOrderEventIndexes(db); err != nil {
		// The ledger's exactly-once guarantee depends on this index.
		log.Fatalf("order event index error: %v", err)
	}
	if err := database.EnsureLocationPingIndexes(db); err != nil {
		log.Printf("location ping index warning: %v", err)
	}
	if err := database.EnsureStaffIndexes(db); err != nil {
		log.Printf("staff index warning: %v", err)
	}

	st := store.New(db)

	if err := bootstrapStaff(st); err != nil {
		log.Println("staff bootstrap warning:", err)
	}

	whatsapp := notify.NewWhatsAppClient(
		config.AppEnv.WhatsAppAccessToken,
		config.AppEnv.WhatsAppPhoneID,
		config.AppEnv.WhatsAppLanguageCode,
	)
	dispatcher := notify.NewDispatcher(whatsapp, st, config.AppEnv.BaseURL)
	go dispatcher.Run()
	defer dispatcher.Close()

	svc := orders.NewService(st, st, st, dispatcher)

	r := gin.Default()
	r.Use(middleware.Prometheus())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/orders/paid",
			middleware.OrderSecret(config.AppEnv.OrderSecret),
			handlers.OrderPaid(svc, config.AppEnv.BaseURL))
		api.GET("/orders",
			middleware.AdminKey(config.AppEnv.AdminAPIKey),
			handlers.ListOrders(svc))
		api.GET("/track/:orderNumber", handlers.TrackOrder(svc))
		api.POST("/courier/location", handlers.CourierLocation(svc))
	}

	r.POST("/kitchen/login", handlers.KitchenLogin(st, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))

	kitchen := r.Group("/kitchen")
	kitchen.Use(middleware.StaffAuth(config.AppEnv.JWTSecret))
	{
		kitchen.GET("/orders", handlers.KitchenOrders(svc))
		kitchen.PATCH("/orders/:orderNumber/status", handlers.UpdateKitchenOrderStatus(svc))
		kitchen.GET("/stats", handlers.KitchenStats(svc))
	}

	log.Println("listening on port", config.AppEnv.Port)
	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal(err)
	}
}

// bootstrapStaff creates the initial kitchen account when the env provides
// one and no account with that email exists yet.
func bootstrapStaff(st *store.Store) error {
	email := strings.ToLower(strings.TrimSpace(config.AppEnv.KitchenStaffEmail))
	password := config.AppEnv.KitchenStaffPassword
	if email == "" || password == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := st.FindStaffByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrStaffNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := st.CreateStaff(ctx, &models.Staff{
		Email:        email,
		Name:         "Kitchen",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return err
	}

	log.Println("[STAFF] [INFO] bootstrap staff account created:", email)
	return nil
}
