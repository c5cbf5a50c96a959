package migrations

import (
	"context"
	"fmt"

	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Account)(nil),
			(*types.Campaign)(nil),
			(*types.Post)(nil),
			(*types.FlaggedAccount)(nil),
			(*types.HashtagActivity)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.HashtagActivity)(nil),
			(*types.FlaggedAccount)(nil),
			(*types.Post)(nil),
			(*types.Campaign)(nil),
			(*types.Account)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
