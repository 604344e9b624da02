package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用したFitbit資格情報リポジトリ。
// ユーザーごとに1行を保持し、行の不在が「未連携」を表す。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// Save は資格情報を保存する。既存の資格情報は上書きされる。
func (r *PostgresCredentialRepo) Save(ctx context.Context, userID string, creds *model.FitbitCredentials) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fitbit_credentials (user_id, access_token, refresh_token, fitbit_user_id, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			fitbit_user_id = EXCLUDED.fitbit_user_id,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`,
		userID, creds.AccessToken, creds.RefreshToken, creds.FitbitUserID, creds.ExpiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save fitbit credentials: %w", err)
	}
	return nil
}

// Load は指定ユーザーの資格情報を取得する。未連携の場合はnilを返す。
func (r *PostgresCredentialRepo) Load(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
	creds := &model.FitbitCredentials{}
	err := r.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, fitbit_user_id, expires_at
		 FROM fitbit_credentials
		 WHERE user_id = $1`,
		userID,
	).Scan(&creds.AccessToken, &creds.RefreshToken, &creds.FitbitUserID, &creds.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fitbit credentials: %w", err)
	}

	return creds, nil
}

// Clear は指定ユーザーの資格情報を削除する。存在しない場合も成功する。
func (r *PostgresCredentialRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM fitbit_credentials WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear fitbit credentials: %w", err)
	}
	return nil
}

// ListConnectedUserIDs は資格情報を保持する全ユーザーIDを返す。
func (r *PostgresCredentialRepo) ListConnectedUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM fitbit_credentials ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan connected user ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connected users: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
