package models

import (
	"context"
	"fmt"
	"time"

	"github.com/tagwatch/tagwatch/internal/database/dbretry"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// AccountModel handles database operations for enrolled platform accounts.
type AccountModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAccount creates a new account model instance.
func NewAccount(db *bun.DB, logger *zap.Logger) *AccountModel {
	return &AccountModel{
		db:     db,
		logger: logger.Named("db_account"),
	}
}

// Upsert enrolls an account or refreshes its credential material. The
// enrollment timestamp is preserved on conflict; last_used is bumped so a
// re-enrolled account reads as recently touched.
func (m *AccountModel) Upsert(ctx context.Context, account *types.Account) error {
	if account.AddedAt.IsZero() {
		account.AddedAt = time.Now()
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(account).
			On("CONFLICT (username) DO UPDATE").
			Set("password = EXCLUDED.password").
			Set("email = EXCLUDED.email").
			Set("email_password = EXCLUDED.email_password").
			Set("proxy_url = EXCLUDED.proxy_url").
			Set("last_used = now()").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert account: %w", err)
		}

		return nil
	})
}

// GetActive returns all accounts eligible for session logins.
func (m *AccountModel) GetActive(ctx context.Context) ([]*types.Account, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Account, error) {
		var accounts []*types.Account

		err := m.db.NewSelect().
			Model(&accounts).
			Where("status = ?", enum.AccountStatusActive).
			Order("added_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active accounts: %w", err)
		}

		return accounts, nil
	})
}

// MarkInactive disables an account after a login failure or by operator
// request and records when it happened.
func (m *AccountModel) MarkInactive(ctx context.Context, username string) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Account)(nil)).
			Set("status = ?", enum.AccountStatusInactive).
			Set("disabled_at = ?", time.Now()).
			Where("username = ?", username).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark account inactive: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Warn("Disabled account", zap.String("username", username))

	return nil
}

// ReactivateAll flips every inactive account back to active. Used by the pool
// manager to recover from a fleet-wide lockout.
func (m *AccountModel) ReactivateAll(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		res, err := m.db.NewUpdate().
			Model((*types.Account)(nil)).
			Set("status = ?", enum.AccountStatusActive).
			Set("disabled_at = NULL").
			Where("status = ?", enum.AccountStatusInactive).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to reactivate accounts: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get reactivated count: %w", err)
		}

		return int(rows), nil
	})
}

// UpdateSession stores fresh session token material after a successful login
// and bumps last_used.
func (m *AccountModel) UpdateSession(ctx context.Context, username, sessionToken, authCookies string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Account)(nil)).
			Set("session_token = ?", sessionToken).
			Set("auth_cookies = ?", authCookies).
			Set("last_used = ?", time.Now()).
			Where("username = ?", username).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update session material: %w", err)
		}

		return nil
	})
}

// CountAddedSince returns how many accounts were enrolled after the given
// time. The monitor uses this to decide when to rebuild the pool mid-run.
func (m *AccountModel) CountAddedSince(ctx context.Context, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.Account)(nil)).
			Where("added_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count new accounts: %w", err)
		}

		return count, nil
	})
}

// List returns all enrolled accounts ordered by enrollment time.
func (m *AccountModel) List(ctx context.Context) ([]*types.Account, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Account, error) {
		var accounts []*types.Account

		err := m.db.NewSelect().
			Model(&accounts).
			Order("added_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}

		return accounts, nil
	})
}
