package gormstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/chirino/social-service/internal/model"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, in registrystore.NewUser) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	switch {
	case in.Username == "":
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	case in.Email == "":
		return nil, &ValidationError{Field: "email", Message: "email is required"}
	case in.FullName == "":
		return nil, &ValidationError{Field: "fullName", Message: "full name is required"}
	case in.PasswordHash == "":
		return nil, &ValidationError{Field: "password", Message: "password is required"}
	}

	found, err := exists(ctx, s.db, &model.User{}, "username = ? OR email = ?", in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if found {
		return nil, &ConflictError{Message: "user already exists", Code: "user_exists"}
	}

	ts := now()
	u := model.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, &ConflictError{Message: "user already exists", Code: "user_exists"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}

func (s *Store) FindUserForLogin(ctx context.Context, username string, email string) (*model.User, error) {
	if username == "" && email == "" {
		return nil, &ValidationError{Field: "username", Message: "username or email is required"}
	}
	tx := s.db.WithContext(ctx)
	if username != "" {
		tx = tx.Where("username = ?", username)
	} else {
		tx = tx.Where("email = ?", email)
	}
	var u model.User
	result := tx.Limit(1).Find(&u)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		id := username
		if id == "" {
			id = email
		}
		return nil, &NotFoundError{Resource: "user", ID: id}
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var u model.User
	result := s.db.WithContext(ctx).Where("id = ?", userID).Limit(1).Find(&u)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "user", ID: userID.String()}
	}
	return &u, nil
}

func (s *Store) GetUserProfile(ctx context.Context, viewerID uuid.UUID, username string) (*registrystore.UserProfile, error) {
	u, err := s.findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	profile := &registrystore.UserProfile{
		UserSummary: u.Summary(),
		Bio:         u.Bio,
		CreatedAt:   u.CreatedAt,
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.Follow{}).Where("following_id = ?", u.ID).Count(&profile.FollowerCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	if err := db.Model(&model.Follow{}).Where("follower_id = ?", u.ID).Count(&profile.FollowingCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}
	if err := db.Model(&model.Post{}).Where("author_id = ?", u.ID).Count(&profile.PostCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	if viewerID != uuid.Nil && viewerID != u.ID {
		profile.IsFollowing, err = exists(ctx, s.db, &model.Follow{}, "follower_id = ? AND following_id = ?", viewerID, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check follow: %w", err)
		}
	}
	return profile, nil
}

func (s *Store) UpdateUser(ctx context.Context, userID uuid.UUID, update registrystore.UserUpdate) (*model.User, error) {
	if update.IsEmpty() {
		return nil, &ValidationError{Field: "body", Message: "no valid fields to update"}
	}
	if update.FullName != nil && strings.TrimSpace(*update.FullName) == "" {
		return nil, &ValidationError{Field: "fullName", Message: "full name cannot be empty"}
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{"updated_at": now()}
	if update.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*update.FullName)
	}
	if update.Bio != nil {
		updates["bio"] = *update.Bio
	}
	if update.AvatarURL != nil {
		updates["avatar_url"] = *update.AvatarURL
	}
	if update.PasswordHash != nil {
		updates["password_hash"] = *update.PasswordHash
	}
	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetUser(ctx, userID)
}

func (s *Store) GetUserSummaries(ctx context.Context, userIDs []uuid.UUID) ([]model.UserSummary, error) {
	byID, err := s.summaries(ctx, s.db, userIDs)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserSummary, 0, len(byID))
	for _, id := range uniqueIDs(userIDs) {
		if sum, ok := byID[id]; ok {
			out = append(out, sum)
		}
	}
	return out, nil
}

// --- Follows ---

func (s *Store) Follow(ctx context.Context, followerID uuid.UUID, username string) (*model.Follow, error) {
	var f model.Follow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.findUserByUsername(ctx, tx, username)
		if err != nil {
			return err
		}
		if target.ID == followerID {
			return &ValidationError{Field: "username", Message: "you cannot follow yourself"}
		}
		found, err := exists(ctx, tx, &model.Follow{}, "follower_id = ? AND following_id = ?", followerID, target.ID)
		if err != nil {
			return fmt.Errorf("failed to check follow: %w", err)
		}
		if found {
			return &ConflictError{Message: "already following this user", Code: "already_following"}
		}
		f = model.Follow{FollowerID: followerID, FollowingID: target.ID, CreatedAt: now()}
		if err := tx.Create(&f).Error; err != nil {
			if isDuplicateKey(err) {
				return &ConflictError{Message: "already following this user", Code: "already_following"}
			}
			return fmt.Errorf("failed to follow: %w", err)
		}
		return s.notify(ctx, tx, model.Notification{
			UserID:        target.ID,
			Type:          model.NotificationFollow,
			Content:       "started following you",
			RelatedUserID: &followerID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) Unfollow(ctx context.Context, followerID uuid.UUID, username string) error {
	target, err := s.findUserByUsername(ctx, s.db, username)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, target.ID).
		Delete(&model.Follow{})
	if result.Error != nil {
		return fmt.Errorf("failed to unfollow: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &ValidationError{Field: "username", Message: "not following this user"}
	}
	return nil
}

func (s *Store) ListFollowers(ctx context.Context, username string, page registrystore.PageRequest) ([]model.UserSummary, registrystore.PageInfo, error) {
	return s.listFollowEdges(ctx, username, page, "following_id", "follower_id")
}

func (s *Store) ListFollowing(ctx context.Context, username string, page registrystore.PageRequest) ([]model.UserSummary, registrystore.PageInfo, error) {
	return s.listFollowEdges(ctx, username, page, "follower_id", "following_id")
}

// listFollowEdges pages the users on the "other" side of follow edges whose
// "self" column is the named user, newest edge first.
func (s *Store) listFollowEdges(ctx context.Context, username string, page registrystore.PageRequest, self, other string) ([]model.UserSummary, registrystore.PageInfo, error) {
	u, err := s.findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	base := s.db.WithContext(ctx).Model(&model.Follow{}).Where(self+" = ?", u.ID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to count follows: %w", err)
	}
	var edges []model.Follow
	err = base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&edges).Error
	if err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to list follows: %w", err)
	}
	ids := make([]uuid.UUID, len(edges))
	for i, e := range edges {
		if other == "follower_id" {
			ids[i] = e.FollowerID
		} else {
			ids[i] = e.FollowingID
		}
	}
	users, err := s.GetUserSummaries(ctx, ids)
	if err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	return users, registrystore.NewPageInfo(page, total), nil
}
