package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"corebank-go/internal/cache"
	"corebank-go/internal/config"
	"corebank-go/internal/database"
	httpserver "corebank-go/internal/http"
	"corebank-go/internal/loans"
	"corebank-go/internal/logger"
	"corebank-go/internal/models"
	"corebank-go/internal/notify"
	"corebank-go/internal/store"
	"corebank-go/internal/transfer"
)

func main() {
	_ = godotenv.Load(".env")
	logger.Init()

	cfg := config.Load()
	database.Connect(cfg)
	database.DB.AutoMigrate(&models.User{}, &models.Account{}, &models.Loan{}, &models.Transaction{})

	redisClient, err := cache.Connect(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	cacheStore := cache.NewStore(redisClient)

	st := store.NewGormStore(database.DB)
	hub := notify.NewHub()
	loanSvc := loans.NewService(st, cacheStore, hub)
	transferSvc := transfer.NewService(st, cacheStore, hub)

	r := httpserver.NewServer(cfg, st, cacheStore, loanSvc, transferSvc, hub)
	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
