package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"taskbroker/internal/database"
	"taskbroker/internal/domain"
	jwtsvc "taskbroker/internal/pkg/jwt"
	"taskbroker/internal/repository"
)

// Seeds a local database with bookings in every lifecycle stage and prints
// demo JWTs for curl sessions.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "taskbroker.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM chat_messages")
	db.Exec("DELETE FROM executions")
	db.Exec("DELETE FROM payments")
	db.Exec("DELETE FROM bookings")

	ctx := context.Background()
	bookings := repository.NewBookingRepository(db)

	const (
		clientID   = int64(101)
		providerID = int64(202)
	)

	log.Println("Creating bookings...")

	// Fresh request, no price yet.
	pending := &domain.Booking{
		ClientID:    clientID,
		ProviderID:  providerID,
		Notes:       "Fix kitchen sink",
		ScheduledAt: time.Now().Add(48 * time.Hour),
	}
	must(bookings.Create(ctx, pending))

	// Mid-negotiation: provider countered, nobody agreed yet.
	price := 120.0
	negotiating := &domain.Booking{
		ClientID:    clientID,
		ProviderID:  providerID,
		Price:       &price,
		Notes:       "Assemble wardrobe",
		ScheduledAt: time.Now().Add(72 * time.Hour),
	}
	must(bookings.Create(ctx, negotiating))
	mustChange(bookings.UpdatePrice(ctx, negotiating.ID, 150))

	// Confirmed: both parties agreed on 100.
	confirmed := &domain.Booking{
		ClientID:    clientID,
		ProviderID:  providerID,
		Notes:       "Deep clean apartment",
		ScheduledAt: time.Now().Add(96 * time.Hour),
	}
	must(bookings.Create(ctx, confirmed))
	mustChange(bookings.UpdatePrice(ctx, confirmed.ID, 100))
	mustChange(bookings.SetAgreement(ctx, confirmed.ID, domain.RoleProvider))
	mustChange(bookings.SetAgreement(ctx, confirmed.ID, domain.RoleClient))
	mustChange(bookings.ConfirmIfDualAgreed(ctx, confirmed.ID))

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-me-jwt-secret"
	}
	j := jwtsvc.New(secret, 24*time.Hour)

	clientToken, err := j.GenerateToken(clientID, string(domain.RoleClient))
	must(err)
	providerToken, err := j.GenerateToken(providerID, string(domain.RoleProvider))
	must(err)

	fmt.Println("Seed complete.")
	fmt.Printf("client    id=%d token=%s\n", clientID, clientToken)
	fmt.Printf("provider  id=%d token=%s\n", providerID, providerToken)
	fmt.Printf("bookings: pending=%d negotiating=%d confirmed=%d\n", pending.ID, negotiating.ID, confirmed.ID)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func mustChange(changed bool, err error) {
	must(err)
	if !changed {
		log.Fatal("seed update matched no rows")
	}
}
