package main

import (
	"log"
	"os"
	"time"

	"interviewgo/internal/account"
	"interviewgo/internal/api"
	"interviewgo/internal/auth"
	"interviewgo/internal/config"
	"interviewgo/internal/interview"
	"interviewgo/internal/mail"
	"interviewgo/internal/redis"
	"interviewgo/internal/session"
	"interviewgo/internal/storage"
	"interviewgo/internal/tts"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("INTERVIEWGO_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("INTERVIEWGO_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: users, tokens, provider keys, sessions
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	rdb, err := redis.NewClient(cfg)
	if err != nil {
		log.Printf("redis unavailable, continuing without cache: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	accountService, err := account.NewService(db)
	if err != nil {
		log.Fatalf("init account service: %v", err)
	}
	authService := auth.NewService(db, rdb, 24*time.Hour)

	callTimeout := time.Duration(cfg.BasicConfig.GenerationTimeout) * time.Second
	if callTimeout <= 0 {
		callTimeout = session.DefaultCallTimeout
	}
	providers := interview.NewFactory(accountService, cfg)
	orchestrator := session.NewOrchestrator(
		session.NewSQLStore(db),
		providers,
		session.NewCache(rdb),
		callTimeout,
	)

	var speech tts.Renderer
	if renderer, err := tts.NewGoogleRenderer(cfg); err != nil {
		log.Printf("speech synthesis disabled: %v", err)
	} else {
		speech = renderer
	}

	var mailer mail.Sender
	if sender, err := mail.NewSendGridSender(cfg.Mail); err != nil {
		log.Printf("mail delivery falling back to process log: %v", err)
		mailer = mail.LogSender{}
	} else {
		mailer = sender
	}
	otpTTL := time.Duration(cfg.Mail.OTPExpireMinutes) * time.Minute

	handlers := api.NewHandler(accountService, authService, orchestrator, speech, mailer, otpTTL)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
