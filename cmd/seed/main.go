// seed prints a development creator token and, when DATABASE_URL is set, creates a sample bill of sale.
// Idempotent: the sample agreement is skipped if the dev creator already has agreements.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	agreementrepo "handshake/backend/internal/agreement/repository"
	agreementservice "handshake/backend/internal/agreement/service"
	"handshake/backend/internal/audit"
	auditrepo "handshake/backend/internal/audit/repository"
	"handshake/backend/internal/config"
	"handshake/backend/internal/db"
	"handshake/backend/internal/otp"
	otprepo "handshake/backend/internal/otp/repository"
	"handshake/backend/internal/receipt"
	"handshake/backend/internal/security"
	signaturerepo "handshake/backend/internal/signature/repository"
)

const (
	devCreatorID    = "dev-creator-001"
	devCreatorEmail = "dev@example.com"
	devTokenTTL     = 30 * 24 * time.Hour
)

func main() {
	genSecret := flag.Bool("gen-secret", false, "Print a random 32-byte hex secret for HMAC_SECRET or CREATOR_JWT_SECRET and exit")
	flag.Parse()

	if *genSecret {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("rand: %v", err)
		}
		fmt.Println(hex.EncodeToString(buf))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.CreatorJWTSecret == "" {
		log.Fatal("CREATOR_JWT_SECRET is not set; run with -gen-secret to create one")
	}

	now := time.Now().UTC()
	token, err := security.IssueCreatorToken(cfg.CreatorJWTSecret, cfg.CreatorJWTIssuer, security.CreatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   devCreatorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(devTokenTTL)),
		},
		Email: devCreatorEmail,
	})
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Printf("Creator token (%s): %s\n", devCreatorEmail, token)

	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL is not set; skipping sample agreement")
		return
	}
	if err := seedAgreement(context.Background(), cfg); err != nil {
		log.Fatalf("seed agreement: %v", err)
	}
}

func seedAgreement(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	secrets, err := security.NewSecretStore(cfg.HMACSecret)
	if err != nil {
		return err
	}
	agreements := agreementrepo.NewPostgresRepository(conn)
	auditRepo := auditrepo.NewPostgresRepository(conn)
	svc := agreementservice.NewService(
		agreements,
		signaturerepo.NewPostgresRepository(conn),
		auditRepo,
		audit.NewLogger(auditRepo, nil, nil),
		// Seeding never sends a code.
		otp.NewVerifier(otprepo.NewPostgresRepository(conn), security.NewCodeDigester(secrets), nil),
		receipt.NewSigner(secrets),
		cfg.FrontendURL,
	)

	creator := security.Creator{ID: devCreatorID, Email: devCreatorEmail}
	existing, err := svc.ListByCreator(ctx, creator)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Printf("Seed already applied (%d agreements for %s). Skipping.", len(existing), devCreatorEmail)
		return nil
	}

	created, err := svc.Create(ctx, creator, agreementservice.CreateInput{
		TemplateID: "bill_of_sale",
		Fields: map[string]string{
			"seller_name":      "Dev Seller",
			"buyer_name":       "Dev Buyer",
			"item_description": "Used road bicycle, 56cm frame",
			"sale_price":       "450",
			"condition":        "Good",
		},
	})
	if err != nil {
		return err
	}
	log.Println("Seed completed successfully.")
	fmt.Printf("Sample agreement %s: %s\n", created.Agreement.ID, created.SignerURL)
	return nil
}
