package gormstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chirino/social-service/internal/model"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Messages ---

func (s *Store) SendMessage(ctx context.Context, senderID uuid.UUID, in registrystore.NewMessage) (*registrystore.MessageView, error) {
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		in.Content = nil
	}
	if in.MediaURL != nil && *in.MediaURL == "" {
		in.MediaURL = nil
	}
	switch {
	case in.Content == nil && in.MediaURL == nil:
		return nil, &ValidationError{Field: "content", Message: "message must have content or media"}
	case in.ReceiverID == nil && in.GroupID == nil:
		return nil, &ValidationError{Field: "receiverId", Message: "either receiverId or groupId must be provided"}
	case in.ReceiverID != nil && in.GroupID != nil:
		return nil, &ValidationError{Field: "receiverId", Message: "cannot specify both receiverId and groupId"}
	}

	if in.ReceiverID != nil {
		if _, err := s.GetUser(ctx, *in.ReceiverID); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.findGroup(ctx, s.db, *in.GroupID); err != nil {
			return nil, err
		}
		if err := s.requireMember(ctx, s.db, senderID, *in.GroupID); err != nil {
			return nil, err
		}
	}

	m := model.Message{
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		GroupID:    in.GroupID,
		Content:    in.Content,
		MediaURL:   in.MediaURL,
		CreatedAt:  now(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	views, err := s.messageViews(ctx, []model.Message{m})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Store) findMessage(ctx context.Context, messageID int64) (*model.Message, error) {
	var m model.Message
	result := s.db.WithContext(ctx).Where("id = ?", messageID).Limit(1).Find(&m)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "message", ID: strconv.FormatInt(messageID, 10)}
	}
	return &m, nil
}

func (s *Store) GetMessage(ctx context.Context, userID uuid.UUID, messageID int64) (*registrystore.MessageView, error) {
	m, err := s.findMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	allowed := m.SenderID == userID || (m.ReceiverID != nil && *m.ReceiverID == userID)
	if !allowed && m.GroupID != nil {
		if allowed, err = s.isMember(ctx, s.db, userID, *m.GroupID); err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, &ForbiddenError{Message: "you don't have access to this message"}
	}

	if m.ReceiverID != nil && *m.ReceiverID == userID && !m.IsRead {
		err := s.db.WithContext(ctx).
			Model(&model.Message{}).
			Where("id = ? AND is_read = ?", m.ID, false).
			Update("is_read", true).Error
		if err != nil {
			return nil, fmt.Errorf("failed to mark message read: %w", err)
		}
		m.IsRead = true
	}

	views, err := s.messageViews(ctx, []model.Message{*m})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Store) DeleteMessage(ctx context.Context, userID uuid.UUID, messageID int64) error {
	m, err := s.findMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return &ForbiddenError{Message: "you can only delete your own messages"}
	}
	if err := s.db.WithContext(ctx).Where("id = ?", messageID).Delete(&model.Message{}).Error; err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (s *Store) ListDirectThread(ctx context.Context, userID uuid.UUID, counterpartID uuid.UUID, page registrystore.PageRequest) ([]registrystore.MessageView, registrystore.PageInfo, error) {
	if _, err := s.GetUser(ctx, counterpartID); err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	base := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("group_id IS NULL").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, counterpartID, counterpartID, userID)
	msgs, info, err := s.pageThread(base, page)
	if err != nil {
		return nil, info, err
	}

	err = s.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", counterpartID, userID, false).
		Update("is_read", true).Error
	if err != nil {
		return nil, info, fmt.Errorf("failed to mark messages read: %w", err)
	}
	for i := range msgs {
		if msgs[i].ReceiverID != nil && *msgs[i].ReceiverID == userID {
			msgs[i].IsRead = true
		}
	}

	views, err := s.messageViews(ctx, msgs)
	if err != nil {
		return nil, info, err
	}
	return views, info, nil
}

func (s *Store) ListGroupThread(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, page registrystore.PageRequest) ([]registrystore.MessageView, registrystore.PageInfo, error) {
	if _, err := s.findGroup(ctx, s.db, groupID); err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	if err := s.requireMember(ctx, s.db, userID, groupID); err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	base := s.db.WithContext(ctx).Model(&model.Message{}).Where("group_id = ?", groupID)
	msgs, info, err := s.pageThread(base, page)
	if err != nil {
		return nil, info, err
	}
	views, err := s.messageViews(ctx, msgs)
	if err != nil {
		return nil, info, err
	}
	return views, info, nil
}

// pageThread selects one page of the newest messages and returns it oldest first.
func (s *Store) pageThread(base *gorm.DB, page registrystore.PageRequest) ([]model.Message, registrystore.PageInfo, error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to count messages: %w", err)
	}
	var msgs []model.Message
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&msgs).Error
	if err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to list messages: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, registrystore.NewPageInfo(page, total), nil
}

const directHeadsSQL = `
SELECT id FROM (
	SELECT id, ROW_NUMBER() OVER (
		PARTITION BY CASE WHEN sender_id = @user THEN receiver_id ELSE sender_id END
		ORDER BY created_at DESC, id DESC
	) AS rn
	FROM messages
	WHERE group_id IS NULL AND receiver_id IS NOT NULL
	  AND (sender_id = @user OR receiver_id = @user)
) ranked WHERE rn = 1`

const groupHeadsSQL = `
SELECT id FROM (
	SELECT m.id, ROW_NUMBER() OVER (
		PARTITION BY m.group_id
		ORDER BY m.created_at DESC, m.id DESC
	) AS rn
	FROM messages m
	JOIN group_members gm ON gm.group_id = m.group_id AND gm.user_id = @user
	WHERE m.group_id IS NOT NULL
) ranked WHERE rn = 1`

func (s *Store) ListDirectThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]registrystore.ThreadHead, error) {
	msgs, err := s.threadHeads(ctx, directHeadsSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct threads: %w", err)
	}
	heads := make([]registrystore.ThreadHead, len(msgs))
	for i, m := range msgs {
		heads[i] = registrystore.ThreadHead{Message: m, CounterpartID: m.CounterpartID(userID)}
	}
	return heads, nil
}

func (s *Store) ListGroupThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]registrystore.ThreadHead, error) {
	msgs, err := s.threadHeads(ctx, groupHeadsSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list group threads: %w", err)
	}
	groupIDs := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		groupIDs = append(groupIDs, *m.GroupID)
	}
	groups, err := s.groupSummaries(ctx, s.db, groupIDs)
	if err != nil {
		return nil, err
	}
	heads := make([]registrystore.ThreadHead, len(msgs))
	for i, m := range msgs {
		g := groups[*m.GroupID]
		heads[i] = registrystore.ThreadHead{Message: m, CounterpartID: g.ID, Group: &g}
	}
	return heads, nil
}

// threadHeads resolves the representative message id of every partition and
// then loads the newest limit of them.
func (s *Store) threadHeads(ctx context.Context, query string, userID uuid.UUID, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}
	var ids []int64
	if err := s.db.WithContext(ctx).Raw(query, map[string]any{"user": userID}).Scan(&ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Message{}, nil
	}
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Store) messageViews(ctx context.Context, msgs []model.Message) ([]registrystore.MessageView, error) {
	views := make([]registrystore.MessageView, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}
	var userIDs, groupIDs []uuid.UUID
	for _, m := range msgs {
		userIDs = append(userIDs, m.SenderID)
		if m.ReceiverID != nil {
			userIDs = append(userIDs, *m.ReceiverID)
		}
		if m.GroupID != nil {
			groupIDs = append(groupIDs, *m.GroupID)
		}
	}
	users, err := s.summaries(ctx, s.db, userIDs)
	if err != nil {
		return nil, err
	}
	groups, err := s.groupSummaries(ctx, s.db, groupIDs)
	if err != nil {
		return nil, err
	}
	for i, m := range msgs {
		v := registrystore.MessageView{Message: m, Sender: users[m.SenderID]}
		if m.ReceiverID != nil {
			if u, ok := users[*m.ReceiverID]; ok {
				v.Receiver = &u
			}
		}
		if m.GroupID != nil {
			if g, ok := groups[*m.GroupID]; ok {
				v.Group = &g
			}
		}
		views[i] = v
	}
	return views, nil
}
