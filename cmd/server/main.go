package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"violet-eightfold/internal/auth"
	"violet-eightfold/internal/config"
	"violet-eightfold/internal/journal"
	"violet-eightfold/internal/llm"
	"violet-eightfold/internal/prompt"
	"violet-eightfold/internal/scheduler"
	"violet-eightfold/internal/server"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	userRepo, err := auth.NewFileRepository(cfg.UsersFilePath)
	if err != nil {
		log.Fatalf("failed to init users repo: %v", err)
	}
	seeds, err := auth.ParseSeeds(cfg.BootstrapUsers)
	if err != nil {
		log.Fatalf("failed to parse bootstrap users: %v", err)
	}
	authSvc, err := auth.NewWithRepo(userRepo, seeds)
	if err != nil {
		log.Fatalf("failed to init auth: %v", err)
	}

	llmClient, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider))
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	recorder, err := journal.NewFileRecorder(cfg.JournalFilePath)
	if err != nil {
		log.Fatalf("failed to init journal: %v", err)
	}

	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)

	lang := prompt.LangEnglish
	if cfg.DefaultLanguage == string(prompt.LangRussian) {
		lang = prompt.LangRussian
	}

	srv := server.New(authSvc, tokens, llmClient, recorder, lang, cfg.RequestTimeout, cfg.ListenPort)

	sched := scheduler.New(cfg.DigestHourUTC)
	sched.SetDigestFunction(func(ctx context.Context) error {
		events, err := recorder.LoadEvents()
		if err != nil {
			return err
		}
		digest := journal.DigestDay(events, time.Now().UTC())
		log.Print(journal.FormatDigest(digest))
		return nil
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("🛑 Shutting down...")
	sched.Stop()
	if err := srv.Stop(); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
}
