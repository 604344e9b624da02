package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Michelan98/sleep-society/internal/model"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Create はフォロー関係を作成する。既に存在する場合は何もしない。
func (r *PostgresFollowRepo) Create(ctx context.Context, follow *model.Follow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		follow.FollowerID, follow.FolloweeID, follow.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert follow: %w", err)
	}
	return nil
}

// Delete はフォロー関係を削除する。存在しない場合は何もしない。
func (r *PostgresFollowRepo) Delete(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// CountFollowers は指定ユーザーのフォロワー数を返す。
func (r *PostgresFollowRepo) CountFollowers(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE followee_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

// CountFollowing は指定ユーザーのフォロー中数を返す。
func (r *PostgresFollowRepo) CountFollowing(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE follower_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}

// ListFolloweeIDs は指定ユーザーがフォローしているユーザーIDの一覧を返す。
func (r *PostgresFollowRepo) ListFolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list followees: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan followee ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate followees: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
