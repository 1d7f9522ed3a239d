package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"evently/internal/auth"
	"evently/internal/config"
	"evently/internal/db"
	apperrors "evently/internal/errors"
	"evently/internal/logger"
	"evently/internal/model"
	"evently/internal/repository"
)

func main() {
	cmd := &cli.Command{
		Name:  "seed",
		Usage: "Create or promote the administrative account, optionally with demo events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "username",
				Value:   "admin",
				Usage:   "Admin username",
				Sources: cli.EnvVars("ADMIN_USERNAME"),
			},
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Admin email",
				Required: true,
				Sources:  cli.EnvVars("ADMIN_EMAIL"),
			},
			&cli.StringFlag{
				Name:     "password",
				Usage:    "Admin password",
				Required: true,
				Sources:  cli.EnvVars("ADMIN_PASSWORD"),
			},
			&cli.IntFlag{
				Name:  "demo-events",
				Usage: "Number of demo events to create for the admin",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, log)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	users := repository.NewUserRepository(gormDB)
	admin, err := ensureAdmin(ctx, users, cmd.String("username"), cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}
	log.Info("admin ready", "user_id", admin.ID, "email", admin.Email)

	count := cmd.Int("demo-events")
	if count <= 0 {
		return nil
	}
	events := repository.NewEventRepository(gormDB)
	if err := seedEvents(ctx, events, admin.ID, count, log); err != nil {
		return err
	}
	log.Info("demo events created", "count", count)
	return nil
}

// ensureAdmin creates a verified admin, or promotes an existing account with
// the same email.
func ensureAdmin(ctx context.Context, users repository.UserRepository, username, email, password string) (*model.User, error) {
	if len(password) < 8 {
		return nil, errors.New("admin password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Role = model.RoleAdmin
		existing.IsVerified = true
		existing.ClearVerifyToken()
		if existing.AuthType == model.AuthTypeLocal {
			existing.PasswordHash = &hash
		}
		if err := users.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
		return existing, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return nil, err
	}

	admin, err := model.NewLocalUser(username, email, hash)
	if err != nil {
		return nil, err
	}
	admin.Role = model.RoleAdmin
	admin.IsVerified = true
	if err := users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

func seedEvents(ctx context.Context, events repository.EventRepository, authorID uuid.UUID, count int, log *slog.Logger) error {
	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		category := model.Categories[i%len(model.Categories)]
		start := now.AddDate(0, 0, 7*(i+1))
		end := start.Add(3 * time.Hour)
		event := &model.Event{
			Name:        fmt.Sprintf("Demo %s #%d", category, i+1),
			Description: fmt.Sprintf("A sample %s to try out the listing.", category),
			Location:    "Online",
			StartDate:   start,
			EndDate:     &end,
			TicketPrice: decimal.NewFromInt(int64(i%4) * 25000),
			Category:    category,
			AuthorID:    authorID,
		}
		if err := event.Validate(); err != nil {
			return err
		}
		if err := events.Create(ctx, event); err != nil {
			return fmt.Errorf("create demo event: %w", err)
		}
		log.Debug("demo event created", "event_id", event.ID, "category", category)
	}
	return nil
}
