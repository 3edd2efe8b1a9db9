package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/logging"
)

// create-admin creates the staff account, or resets its password and signs
// it out everywhere when the email already exists.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)

	email := flag.String("email", cfg.AdminEmail, "login email (ADMIN_EMAIL)")
	name := flag.String("name", "Clinic Admin", "display name")
	role := flag.String("role", auth.RoleDoctor, "role claim put in access tokens")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if *email == "" || password == "" {
		logger.Fatal().Msg("ADMIN_EMAIL (or -email) and ADMIN_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	hash, err := auth.HashSecret(password)
	if err != nil {
		logger.Fatal().Err(err).Msg("hash password")
	}

	u, err := auth.NewPgUserStore(pool).Upsert(ctx, auth.User{
		Name:         *name,
		Email:        *email,
		PasswordHash: hash,
		Role:         *role,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("save user")
	}

	logger.Info().Str("user_id", u.ID.String()).Str("email", u.Email).Str("role", u.Role).Msg("admin user ready")
}
