package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/setup/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrIDRequired = errors.New("CAMPAIGN_ID argument required")

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
		Name:  "campaigns",
		Usage: "Manage monitoring campaigns",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a monitoring campaign",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true, Usage: "Unique campaign name"},
					&cli.StringSliceFlag{
						Name:     "group",
						Required: true,
						Usage:    "Comma-separated hashtag group of 2-3 tags, repeatable",
					},
					&cli.StringSliceFlag{
						Name:  "track",
						Usage: "Restrict ingestion to these authors, repeatable",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					campaign := &types.Campaign{
						Name:            c.String("name"),
						HashtagGroups:   parseGroups(c.StringSlice("group")),
						TrackedAccounts: c.StringSlice("track"),
						Active:          true,
					}

					if err := db.Model().Campaign().Create(ctx, campaign); err != nil {
						return err
					}

					fmt.Printf("Created campaign %s (%s)\n", campaign.Name, campaign.ID)

					return nil
				},
			},
			{
				Name:      "enable",
				Usage:     "Enable a campaign",
				ArgsUsage: "CAMPAIGN_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					return setActive(ctx, db, c, true)
				},
			},
			{
				Name:      "disable",
				Usage:     "Disable a campaign",
				ArgsUsage: "CAMPAIGN_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					return setActive(ctx, db, c, false)
				},
			},
			{
				Name:  "list",
				Usage: "List active campaigns",
				Action: func(ctx context.Context, _ *cli.Command) error {
					campaigns, err := db.Model().Campaign().GetActive(ctx)
					if err != nil {
						return err
					}

					for _, campaign := range campaigns {
						fmt.Printf("%s  %-24s groups=%d tracked=%d\n",
							campaign.ID,
							campaign.Name,
							len(campaign.HashtagGroups),
							len(campaign.TrackedAccounts),
						)
					}

					return nil
				},
			},
			{
				Name:      "flags",
				Usage:     "Show flagged accounts for a campaign",
				ArgsUsage: "CAMPAIGN_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := campaignID(c)
					if err != nil {
						return err
					}

					flags, err := db.Model().Flag().GetByCampaign(ctx, id)
					if err != nil {
						return err
					}

					for _, flag := range flags {
						fmt.Printf("%-24s posts=%-4d first=%s last=%s\n",
							flag.Username,
							flag.PostCount,
							flag.FirstDetected.Format("2006-01-02 15:04"),
							flag.LastDetected.Format("2006-01-02 15:04"),
						)
					}

					return nil
				},
			},
			{
				Name:  "surges",
				Usage: "Show recorded hashtag surges",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum surges to show"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					surges, err := db.Model().Activity().GetSurges(ctx, int(c.Int("limit")))
					if err != nil {
						return err
					}

					for _, surge := range surges {
						fmt.Printf("%s  %-40s posts=%-4d accounts=%d\n",
							surge.Date.Format("2006-01-02"),
							strings.Join(surge.Hashtags, ","),
							surge.PostCount,
							surge.UniqueAccounts,
						)
					}

					return nil
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func setActive(ctx context.Context, db database.Client, c *cli.Command, active bool) error {
	id, err := campaignID(c)
	if err != nil {
		return err
	}

	if err := db.Model().Campaign().SetActive(ctx, id, active); err != nil {
		return err
	}

	fmt.Printf("Campaign %s active=%t\n", id, active)

	return nil
}

func campaignID(c *cli.Command) (uuid.UUID, error) {
	if c.Args().Len() != 1 {
		return uuid.Nil, ErrIDRequired
	}

	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid campaign id: %w", err)
	}

	return id, nil
}

// parseGroups splits comma-separated tag lists into hashtag groups.
func parseGroups(raw []string) []types.HashtagGroup {
	groups := make([]types.HashtagGroup, 0, len(raw))

	for _, entry := range raw {
		var group types.HashtagGroup

		for _, tag := range strings.Split(entry, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				group = append(group, tag)
			}
		}

		if len(group) > 0 {
			groups = append(groups, group)
		}
	}

	return groups
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
