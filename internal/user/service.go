// Package user はユーザープロフィールとフォロー関係のビジネスロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Michelan98/sleep-society/internal/fitbit"
	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/repository"
	"github.com/Michelan98/sleep-society/internal/security"
)

// Service はユーザープロフィールに関するビジネスロジックを提供する。
type Service struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	fitbitSvc  fitbit.FitbitService
	sanitizer  security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	fitbitSvc fitbit.FitbitService,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		userRepo:   userRepo,
		followRepo: followRepo,
		fitbitSvc:  fitbitSvc,
		sanitizer:  sanitizer,
	}
}

// GetProfile はフォロー数とFitbit連携状態を含む完全なプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.attachDerivedFields(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile はプロフィールを部分更新し、マージ後の完全なプロフィールを返す。
// nilのフィールドは変更されない。名前と自己紹介はサニタイズして保存する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if update.Name != nil {
		name := s.sanitizer.SanitizeText(*update.Name)
		if name == "" {
			return nil, model.NewValidationError("名前を空にはできません")
		}
		user.Name = name
	}
	if update.AvatarURL != nil {
		user.AvatarURL = s.sanitizer.SanitizeText(*update.AvatarURL)
	}
	if update.Bio != nil {
		user.Bio = s.sanitizer.SanitizeText(*update.Bio)
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("profile updated", slog.String("user_id", userID))

	if err := s.attachDerivedFields(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Follow はフォロー関係を作成する。自分自身はフォローできない。
// 既にフォロー済みの場合は何もせず成功する。
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return model.NewValidationError("自分自身はフォローできません")
	}

	followee, err := s.userRepo.FindByID(ctx, followeeID)
	if err != nil {
		return fmt.Errorf("failed to find followee: %w", err)
	}
	if followee == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.followRepo.Create(ctx, &model.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}

	slog.Info("user followed",
		slog.String("follower_id", followerID),
		slog.String("followee_id", followeeID),
	)
	return nil
}

// Unfollow はフォロー関係を削除する。未フォローの場合も成功する。
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := s.followRepo.Delete(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// Withdraw はユーザーを退会させる。
// セッション・フォロー・睡眠記録・Fitbit関連データはDBのCASCADEで削除されるが、
// プロバイダー側の連携解除は明示的に行う。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if err := s.fitbitSvc.Disconnect(ctx, userID); err != nil {
		return fmt.Errorf("failed to disconnect fitbit before withdrawal: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	slog.Info("user withdrawn", slog.String("user_id", userID))
	return nil
}

// ListFolloweeIDs はフォロー中ユーザーのID一覧を返す。フィード取得に使う。
func (s *Service) ListFolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.followRepo.ListFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followees: %w", err)
	}
	return ids, nil
}

// attachDerivedFields はフォロー数とFitbit連携状態を設定する。
// いずれも保存値ではなく読み取り時に導出する。
func (s *Service) attachDerivedFields(ctx context.Context, user *model.User) error {
	followers, err := s.followRepo.CountFollowers(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to count followers: %w", err)
	}
	following, err := s.followRepo.CountFollowing(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to count following: %w", err)
	}
	user.FollowerCount = followers
	user.FollowingCount = following

	connected, err := s.fitbitSvc.Connected(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to check fitbit connection: %w", err)
	}
	if connected {
		user.Connection = model.FitbitConnection{Status: model.ConnectionConnected}
	} else {
		user.Connection = model.FitbitConnection{Status: model.ConnectionDisconnected}
	}
	return nil
}
