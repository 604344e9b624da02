package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Michelan98/sleep-society/internal/model"
)

// PostgresSleepRepo はPostgreSQLを使用した睡眠記録リポジトリ。
type PostgresSleepRepo struct {
	db *sql.DB
}

// NewPostgresSleepRepo はPostgresSleepRepoを生成する。
func NewPostgresSleepRepo(db *sql.DB) *PostgresSleepRepo {
	return &PostgresSleepRepo{db: db}
}

const sleepRecordColumns = `id, user_id, date, duration_label, quality_percent, energy_score,
	deep_pct, rem_pct, light_pct, awake_minutes, avg_heart_rate, note, fitbit_log_id, likes, created_at`

// Create は睡眠記録を作成する。
func (r *PostgresSleepRepo) Create(ctx context.Context, record *model.SleepRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sleep_records (`+sleepRecordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		record.ID, record.UserID, record.Date, record.Duration,
		record.QualityPercent, record.EnergyScore,
		record.DeepPct, record.RemPct, record.LightPct,
		record.AwakeMinutes, record.AverageHeartRate,
		record.Note, record.FitbitLogID, record.Likes, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sleep record: %w", err)
	}
	return nil
}

// UpsertProviderRecord はプロバイダー由来の睡眠記録を冪等に保存する。
// 同一ユーザー・同一fitbit_log_idの既存記録は上書きされる。
func (r *PostgresSleepRepo) UpsertProviderRecord(ctx context.Context, record *model.SleepRecord) error {
	if record.FitbitLogID == "" {
		return fmt.Errorf("provider record requires fitbit_log_id")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sleep_records (`+sleepRecordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (user_id, fitbit_log_id) WHERE fitbit_log_id <> ''
		 DO UPDATE SET
			date = EXCLUDED.date,
			duration_label = EXCLUDED.duration_label,
			quality_percent = EXCLUDED.quality_percent,
			energy_score = EXCLUDED.energy_score,
			deep_pct = EXCLUDED.deep_pct,
			rem_pct = EXCLUDED.rem_pct,
			light_pct = EXCLUDED.light_pct,
			awake_minutes = EXCLUDED.awake_minutes,
			avg_heart_rate = EXCLUDED.avg_heart_rate,
			note = EXCLUDED.note`,
		record.ID, record.UserID, record.Date, record.Duration,
		record.QualityPercent, record.EnergyScore,
		record.DeepPct, record.RemPct, record.LightPct,
		record.AwakeMinutes, record.AverageHeartRate,
		record.Note, record.FitbitLogID, record.Likes, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert provider sleep record: %w", err)
	}
	return nil
}

// FindLatestByUser は指定ユーザーの最新の睡眠記録を返す。見つからない場合はnil。
func (r *PostgresSleepRepo) FindLatestByUser(ctx context.Context, userID string) (*model.SleepRecord, error) {
	record := &model.SleepRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+sleepRecordColumns+`
		 FROM sleep_records
		 WHERE user_id = $1
		 ORDER BY date DESC
		 LIMIT 1`,
		userID,
	).Scan(
		&record.ID, &record.UserID, &record.Date, &record.Duration,
		&record.QualityPercent, &record.EnergyScore,
		&record.DeepPct, &record.RemPct, &record.LightPct,
		&record.AwakeMinutes, &record.AverageHeartRate,
		&record.Note, &record.FitbitLogID, &record.Likes, &record.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest sleep record: %w", err)
	}

	return record, nil
}

// ListByUser は指定ユーザーの睡眠記録をdate降順で最大limit件返す。
func (r *PostgresSleepRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.SleepRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sleepRecordColumns+`
		 FROM sleep_records
		 WHERE user_id = $1
		 ORDER BY date DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sleep records: %w", err)
	}
	defer rows.Close()

	var records []*model.SleepRecord
	for rows.Next() {
		record := &model.SleepRecord{}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.Date, &record.Duration,
			&record.QualityPercent, &record.EnergyScore,
			&record.DeepPct, &record.RemPct, &record.LightPct,
			&record.AwakeMinutes, &record.AverageHeartRate,
			&record.Note, &record.FitbitLogID, &record.Likes, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sleep record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sleep records: %w", err)
	}

	return records, nil
}

// ListFeed は指定ユーザー群の睡眠記録をユーザー情報付きでdate降順に返す。
func (r *PostgresSleepRepo) ListFeed(ctx context.Context, userIDs []string, limit, offset int) ([]model.FeedItem, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.user_id, u.name, u.avatar_url, s.date, s.duration_label,
			s.quality_percent, s.likes, s.note
		 FROM sleep_records s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.user_id = ANY($1)
		 ORDER BY s.date DESC
		 LIMIT $2 OFFSET $3`,
		pq.Array(userIDs), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	defer rows.Close()

	var items []model.FeedItem
	for rows.Next() {
		var item model.FeedItem
		if err := rows.Scan(
			&item.RecordID, &item.UserID, &item.UserName, &item.UserAvatarURL,
			&item.Date, &item.Duration, &item.QualityPercent, &item.Likes, &item.Note,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feed items: %w", err)
	}

	return items, nil
}

// IncrementLikes は睡眠記録のいいね数を1増やし、更新後の値を返す。
func (r *PostgresSleepRepo) IncrementLikes(ctx context.Context, recordID string) (int, error) {
	var likes int
	err := r.db.QueryRowContext(ctx,
		`UPDATE sleep_records SET likes = likes + 1 WHERE id = $1 RETURNING likes`,
		recordID,
	).Scan(&likes)

	if err == sql.ErrNoRows {
		return 0, model.NewRecordNotFoundError(recordID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment likes: %w", err)
	}

	return likes, nil
}

// Leaderboard はユーザーごとの最新記録をエナジースコア降順で最大limit件返す。
func (r *PostgresSleepRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ranked.user_id, u.name, u.avatar_url,
			ranked.energy_score, ranked.duration_label, ranked.quality_percent
		 FROM (
			SELECT DISTINCT ON (user_id)
				user_id, energy_score, duration_label, quality_percent
			FROM sleep_records
			ORDER BY user_id, date DESC
		 ) ranked
		 JOIN users u ON u.id = ranked.user_id
		 ORDER BY ranked.energy_score DESC, u.name ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	rank := 0
	for rows.Next() {
		rank++
		entry := model.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(
			&entry.UserID, &entry.Name, &entry.AvatarURL,
			&entry.Score, &entry.Duration, &entry.QualityPercent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ SleepRepository = (*PostgresSleepRepo)(nil)
