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

// --- Groups ---

func (s *Store) CreateGroup(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*registrystore.GroupSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "group name is required"}
	}
	members := uniqueIDs(append([]uuid.UUID{creatorID}, memberIDs...))
	g := model.Group{ID: uuid.New(), Name: name, CreatorID: creatorID, CreatedAt: now()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("id IN ?", members).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check members: %w", err)
		}
		if n != int64(len(members)) {
			return &ValidationError{Field: "memberIds", Message: "one or more members do not exist"}
		}
		if err := tx.Create(&g).Error; err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		rows := make([]model.GroupMember, len(members))
		for i, id := range members {
			rows[i] = model.GroupMember{GroupID: g.ID, UserID: id, JoinedAt: g.CreatedAt}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to add group members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &registrystore.GroupSummary{ID: g.ID, Name: g.Name, AvatarURL: g.AvatarURL, MemberCount: int64(len(members))}, nil
}

func (s *Store) AddGroupMember(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, memberID uuid.UUID) (*model.GroupMember, error) {
	if _, err := s.findGroup(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.db, userID, groupID); err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, memberID); err != nil {
		return nil, err
	}
	m := model.GroupMember{GroupID: groupID, UserID: memberID, JoinedAt: now()}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, &ConflictError{Message: "user is already a member of this group", Code: "already_member"}
		}
		return nil, fmt.Errorf("failed to add group member: %w", err)
	}
	return &m, nil
}

// RemoveGroupMember lets a member leave, or the group creator remove a member.
func (s *Store) RemoveGroupMember(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, memberID uuid.UUID) error {
	g, err := s.findGroup(ctx, s.db, groupID)
	if err != nil {
		return err
	}
	if userID != memberID && g.CreatorID != userID {
		return &ForbiddenError{Message: "only the group creator can remove other members"}
	}
	result := s.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, memberID).Delete(&model.GroupMember{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove group member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "group member", ID: memberID.String()}
	}
	return nil
}

func (s *Store) findGroup(ctx context.Context, tx *gorm.DB, groupID uuid.UUID) (*model.Group, error) {
	var g model.Group
	result := tx.WithContext(ctx).Where("id = ?", groupID).Limit(1).Find(&g)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "group", ID: groupID.String()}
	}
	return &g, nil
}

func (s *Store) isMember(ctx context.Context, tx *gorm.DB, userID, groupID uuid.UUID) (bool, error) {
	found, err := exists(ctx, tx, &model.GroupMember{}, "group_id = ? AND user_id = ?", groupID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return found, nil
}

func (s *Store) requireMember(ctx context.Context, tx *gorm.DB, userID, groupID uuid.UUID) error {
	ok, err := s.isMember(ctx, tx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return &ForbiddenError{Message: "you are not a member of this group"}
	}
	return nil
}

// groupSummaries loads groups with their current member counts keyed by id.
func (s *Store) groupSummaries(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]registrystore.GroupSummary, error) {
	out := make(map[uuid.UUID]registrystore.GroupSummary, len(ids))
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var groups []model.Group
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	counts, err := countBy(ctx, tx, "group_members", "group_id", ids)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		out[g.ID] = registrystore.GroupSummary{ID: g.ID, Name: g.Name, AvatarURL: g.AvatarURL, MemberCount: counts[g.ID]}
	}
	return out, nil
}
