package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tagwatch/tagwatch/internal/database"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/setup/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrUsernameRequired = errors.New("USERNAME argument required")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	app := &cli.Command{
		Name:  "accounts",
		Usage: "Manage enrolled platform accounts",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Enroll an account or refresh its credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true, Usage: "Account username"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "Account password"},
					&cli.StringFlag{Name: "email", Usage: "Recovery email"},
					&cli.StringFlag{Name: "email-password", Usage: "Recovery email password"},
					&cli.StringFlag{Name: "proxy-url", Usage: "Proxy used for this account's sessions"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					account := &types.Account{
						Username:      c.String("username"),
						Password:      c.String("password"),
						Email:         c.String("email"),
						EmailPassword: c.String("email-password"),
						ProxyURL:      c.String("proxy-url"),
					}

					if err := db.Model().Account().Upsert(ctx, account); err != nil {
						return err
					}

					fmt.Printf("Enrolled account %s\n", account.Username)

					return nil
				},
			},
			{
				Name:      "disable",
				Usage:     "Disable an account",
				ArgsUsage: "USERNAME",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrUsernameRequired
					}

					username := c.Args().First()
					if err := db.Model().Account().MarkInactive(ctx, username); err != nil {
						return err
					}

					fmt.Printf("Disabled account %s\n", username)

					return nil
				},
			},
			{
				Name:  "reactivate",
				Usage: "Reactivate every disabled account",
				Action: func(ctx context.Context, _ *cli.Command) error {
					count, err := db.Model().Account().ReactivateAll(ctx)
					if err != nil {
						return err
					}

					fmt.Printf("Reactivated %d accounts\n", count)

					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List enrolled accounts",
				Action: func(ctx context.Context, _ *cli.Command) error {
					accounts, err := db.Model().Account().List(ctx)
					if err != nil {
						return err
					}

					for _, account := range accounts {
						fmt.Printf("%-24s %-8s added=%s last_used=%s\n",
							account.Username,
							account.Status.String(),
							account.AddedAt.Format("2006-01-02"),
							formatTime(account.LastUsed),
						)
					}

					return nil
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func connect() (database.Client, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := zap.NewNop()

	db, err := database.NewConnection(context.Background(), &cfg.Common.PostgreSQL, logger, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return t.Format("2006-01-02 15:04")
}
