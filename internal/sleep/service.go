// Package sleep は内部ストアの睡眠記録とソーシャル機能のビジネスロジックを提供する。
package sleep

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/repository"
	"github.com/Michelan98/sleep-society/internal/security"
)

// ServiceConfig は睡眠サービスの設定。
type ServiceConfig struct {
	FeedPageSize    int
	LeaderboardSize int
}

// ManualEntryInput は手入力の睡眠記録を表す。
// Fitbit未連携ユーザー向けの内部データ入力経路。
type ManualEntryInput struct {
	Date         time.Time
	DeepMinutes  int
	RemMinutes   int
	LightMinutes int
	AwakeMinutes int
	Note         string
}

// Service は睡眠記録に関するビジネスロジックを提供する。
type Service struct {
	sleepRepo  repository.SleepRepository
	followRepo repository.FollowRepository
	sanitizer  security.ContentSanitizerService
	config     ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	sleepRepo repository.SleepRepository,
	followRepo repository.FollowRepository,
	sanitizer security.ContentSanitizerService,
	config ServiceConfig,
) *Service {
	return &Service{
		sleepRepo:  sleepRepo,
		followRepo: followRepo,
		sanitizer:  sanitizer,
		config:     config,
	}
}

// Latest は指定ユーザーの最新の睡眠記録を返す。記録がない場合はnil。
func (s *Service) Latest(ctx context.Context, userID string) (*model.SleepRecord, error) {
	record, err := s.sleepRepo.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find latest sleep record: %w", err)
	}
	return record, nil
}

// History は指定ユーザーの睡眠記録を新しい順に返す。
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*model.SleepRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	records, err := s.sleepRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sleep records: %w", err)
	}
	return records, nil
}

// RecordManualEntry は手入力の睡眠記録を保存する。
// スコアはプロバイダー由来の記録と同じ式で導出し、ダッシュボード上で
// 両者を区別なく扱えるようにする。
func (s *Service) RecordManualEntry(ctx context.Context, userID string, input ManualEntryInput) (*model.SleepRecord, error) {
	if input.Date.IsZero() {
		return nil, model.NewValidationError("日付を指定してください")
	}
	if input.DeepMinutes < 0 || input.RemMinutes < 0 || input.LightMinutes < 0 || input.AwakeMinutes < 0 {
		return nil, model.NewValidationError("睡眠時間は0以上にしてください")
	}

	totalMinutes := input.DeepMinutes + input.RemMinutes + input.LightMinutes + input.AwakeMinutes
	if totalMinutes == 0 {
		return nil, model.NewValidationError("睡眠時間を入力してください")
	}
	if totalMinutes > 24*60 {
		return nil, model.NewValidationError("睡眠時間が24時間を超えています")
	}

	record := &model.SleepRecord{
		ID:           uuid.New().String(),
		UserID:       userID,
		Date:         input.Date,
		AwakeMinutes: input.AwakeMinutes,
		Note:         s.sanitizer.SanitizeText(input.Note),
		CreatedAt:    time.Now(),
	}
	applyScores(record, input.DeepMinutes, input.RemMinutes, input.LightMinutes, input.AwakeMinutes, totalMinutes)

	if err := s.sleepRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create sleep record: %w", err)
	}

	slog.Info("manual sleep entry recorded",
		slog.String("user_id", userID),
		slog.String("date", input.Date.Format("2006-01-02")),
	)
	return record, nil
}

// Feed はフォロー中ユーザーと自分の睡眠記録を新しい順に返す。
func (s *Service) Feed(ctx context.Context, userID string, page int) ([]model.FeedItem, error) {
	if page < 0 {
		page = 0
	}

	followees, err := s.followRepo.ListFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followees: %w", err)
	}
	userIDs := append(followees, userID)

	items, err := s.sleepRepo.ListFeed(ctx, userIDs, s.config.FeedPageSize, page*s.config.FeedPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return items, nil
}

// Like は睡眠記録にいいねを付け、更新後のいいね数を返す。
func (s *Service) Like(ctx context.Context, recordID string) (int, error) {
	likes, err := s.sleepRepo.IncrementLikes(ctx, recordID)
	if err != nil {
		return 0, model.NewRecordNotFoundError(recordID)
	}
	return likes, nil
}

// Leaderboard はユーザーごとの最新エナジースコアの降順ランキングを返す。
func (s *Service) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	entries, err := s.sleepRepo.Leaderboard(ctx, s.config.LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// applyScores はステージ割合・品質スコア・エナジースコア・表示用時間を設定する。
// プロバイダー由来の記録と同じ重み（deep 1.5 / rem 1.2 / light 0.5）と
// 8時間基準を使用する。
func applyScores(record *model.SleepRecord, deep, rem, light, awake, totalMinutes int) {
	record.DeepPct = int(math.Round(float64(deep) / float64(totalMinutes) * 100))
	record.RemPct = int(math.Round(float64(rem) / float64(totalMinutes) * 100))
	record.LightPct = int(math.Round(float64(light) / float64(totalMinutes) * 100))

	quality := int(math.Round(float64(record.DeepPct)*1.5 + float64(record.RemPct)*1.2 + float64(record.LightPct)*0.5))
	if quality > 100 {
		quality = 100
	}
	record.QualityPercent = quality

	scale := float64(totalMinutes) / (8 * 60)
	if scale > 1 {
		scale = 1
	}
	record.EnergyScore = int(math.Round(float64(quality) * scale))
	record.Duration = fmt.Sprintf("%dh %dm", totalMinutes/60, totalMinutes%60)
}
