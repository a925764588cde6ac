package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"arcade_webapp/internal/config"
	"arcade_webapp/internal/db"
	"arcade_webapp/internal/repository"
	"arcade_webapp/internal/service"
)

// create_admin registers an account if needed, grants it admin and prints a token
func main() {
	username := flag.String("username", "", "account name (3-20 characters)")
	password := flag.String("password", "", "password for a new account; empty creates a guest account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	repo := repository.NewAccountRepository(pool)
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	accounts := service.NewAccountService(repo, tokens)

	// try to register first
	_, err = accounts.Register(ctx, *username, *password, "cli")
	switch {
	case err == nil:
		log.Printf("account created username=%s\n", service.NormalizeUsername(*username))
	case errors.Is(err, service.ErrUsernameTaken):
		log.Printf("account already exists username=%s\n", service.NormalizeUsername(*username))
	default:
		log.Fatalf("create account failed: %v", err)
	}

	name := service.NormalizeUsername(*username)
	if err := repo.SetAdmin(ctx, name, true); err != nil {
		log.Fatalf("grant admin failed: %v", err)
	}

	// verify read
	acct, err := repo.GetByUsername(ctx, name)
	if err != nil {
		log.Fatalf("get by username failed: %v", err)
	}
	log.Printf("fetched username=%s is_admin=%t created_at=%v\n", acct.Username, acct.IsAdmin, acct.CreatedAt)

	token, err := tokens.Issue(acct.Username, acct.IsAdmin)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
