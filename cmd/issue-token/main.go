// Command issue-token mints a bearer token for local development, standing in for the external
// identity provider.
//
//	go run ./cmd/issue-token -sub user_123 -ttl 2h
package main

import (
	"flag"
	"fmt"
	"log"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/pkg/jwt"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}
	cfg := config.Load()

	subject := flag.String("sub", "", "user id to put in the sub claim (required)")
	ttl := flag.Duration("ttl", cfg.JWT.TTL, "token lifetime")
	flag.Parse()

	if *subject == "" {
		log.Fatal("❌ -sub is required")
	}

	// 2. Sign
	token, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, *ttl).GenerateToken(*subject)
	if err != nil {
		log.Fatalf("❌ Failed to sign token: %v", err)
	}

	log.Printf("✅ Token for %s valid for %s", *subject, *ttl)
	fmt.Println(token)
}
