package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Michelan98/sleep-society/internal/model"
)

// PostgresOAuthStateRepo はPostgreSQLを使用したOAuth stateリポジトリ。
// 1ユーザーにつき1つのstateのみ保持し、Consumeで必ず削除される。
type PostgresOAuthStateRepo struct {
	db *sql.DB
}

// NewPostgresOAuthStateRepo はPostgresOAuthStateRepoを生成する。
func NewPostgresOAuthStateRepo(db *sql.DB) *PostgresOAuthStateRepo {
	return &PostgresOAuthStateRepo{db: db}
}

// Save はstateを保存する。既存のstateは上書きされる。
func (r *PostgresOAuthStateRepo) Save(ctx context.Context, state *model.OAuthState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fitbit_oauth_states (user_id, state, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
			state = EXCLUDED.state,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`,
		state.UserID, state.State, state.ExpiresAt, state.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume は指定ユーザーのstateを取得と同時に削除する。
// DELETE ... RETURNINGにより取得と削除が原子的に行われ、
// 同じstateを2回検証に使うことはできない。
func (r *PostgresOAuthStateRepo) Consume(ctx context.Context, userID string) (*model.OAuthState, error) {
	state := &model.OAuthState{}
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM fitbit_oauth_states
		 WHERE user_id = $1
		 RETURNING user_id, state, expires_at, created_at`,
		userID,
	).Scan(&state.UserID, &state.State, &state.ExpiresAt, &state.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	return state, nil
}

// compile-time interface check
var _ OAuthStateRepository = (*PostgresOAuthStateRepo)(nil)
