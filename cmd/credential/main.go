// Command credential creates or updates a login for the logs page.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/database"
	"github.com/mx-space/fpcollector/internal/models"
	"github.com/mx-space/fpcollector/internal/modules/auth"
	"github.com/mx-space/fpcollector/internal/store"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	email := flag.String("email", "", "Login email")
	password := flag.String("password", "", "Login password")
	name := flag.String("name", "", "Name shown as the session subject")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := run(*configPath, *email, *password, *name, logger); err != nil {
		logger.Error("credential update failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath, email, password, name string, logger *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg, true)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cred, err := saveCredential(ctx, store.NewSQL(db), cfg.Auth.PasswordScheme, email, password, name)
	if err != nil {
		return err
	}
	logger.Info("credential saved",
		zap.String("email", cred.Email),
		zap.String("name", cred.Name),
		zap.String("scheme", cfg.Auth.PasswordScheme),
		zap.String("driver", cfg.Database.Driver),
	)
	return nil
}

// saveCredential validates the input, stores the password in the form scheme
// expects and upserts the row by email. The name defaults to the email.
func saveCredential(ctx context.Context, gw *store.SQL, scheme, email, password, name string) (models.Credential, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.Credential{}, errors.New("-email and -password are required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email
	}

	stored, err := auth.HashPassword(scheme, password)
	if err != nil {
		return models.Credential{}, err
	}
	cred := models.Credential{Email: email, Password: stored, Name: name}
	if err := gw.UpsertCredential(ctx, cred); err != nil {
		return models.Credential{}, err
	}
	return cred, nil
}
