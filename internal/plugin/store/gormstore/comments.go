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

// --- Comments ---

func (s *Store) ListComments(ctx context.Context, postID uuid.UUID, page registrystore.PageRequest) ([]registrystore.CommentView, registrystore.PageInfo, error) {
	if _, err := s.findPost(ctx, s.db, postID); err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	base := s.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ? AND parent_comment_id IS NULL", postID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to count comments: %w", err)
	}
	var comments []model.Comment
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&comments).Error
	if err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to list comments: %w", err)
	}
	views, err := s.commentViews(ctx, comments)
	if err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	return views, registrystore.NewPageInfo(page, total), nil
}

// GetComment returns the comment with its direct replies, oldest reply first.
func (s *Store) GetComment(ctx context.Context, commentID uuid.UUID) (*registrystore.CommentView, error) {
	c, err := s.findComment(ctx, s.db, commentID)
	if err != nil {
		return nil, err
	}
	views, err := s.commentViews(ctx, []model.Comment{*c})
	if err != nil {
		return nil, err
	}
	var replies []model.Comment
	err = s.db.WithContext(ctx).
		Where("parent_comment_id = ?", commentID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load replies: %w", err)
	}
	if views[0].Replies, err = s.commentViews(ctx, replies); err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Store) CreateComment(ctx context.Context, userID uuid.UUID, postID uuid.UUID, content string, parentCommentID *uuid.UUID) (*registrystore.CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Message: "content is empty"}
	}
	c := model.Comment{
		ID:              uuid.New(),
		PostID:          postID,
		AuthorID:        userID,
		ParentCommentID: parentCommentID,
		Content:         content,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.findPost(ctx, tx, postID)
		if err != nil {
			return err
		}
		if parentCommentID != nil {
			parent, err := s.findComment(ctx, tx, *parentCommentID)
			if err != nil {
				return err
			}
			if parent.PostID != postID {
				return &ValidationError{Field: "parentCommentId", Message: "parent comment belongs to another post"}
			}
		}
		c.CreatedAt = now()
		c.UpdatedAt = c.CreatedAt
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return s.notify(ctx, tx, model.Notification{
			UserID:        post.AuthorID,
			Type:          model.NotificationComment,
			Content:       "commented on your post",
			RelatedUserID: &userID,
			RelatedPostID: &postID,
		})
	})
	if err != nil {
		return nil, err
	}
	views, err := s.commentViews(ctx, []model.Comment{c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Store) UpdateComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID, content string) (*registrystore.CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Message: "comment content cannot be empty"}
	}
	c, err := s.findComment(ctx, s.db, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != userID {
		return nil, &ForbiddenError{Message: "you can only update your own comments"}
	}
	err = s.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"content":    content,
		"updated_at": now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	c.Content = content
	views, err := s.commentViews(ctx, []model.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeleteComment removes a comment and its replies. The comment author and the
// post author may delete it.
func (s *Store) DeleteComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error {
	c, err := s.findComment(ctx, s.db, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != userID {
		post, err := s.findPost(ctx, s.db, c.PostID)
		if err != nil || post.AuthorID != userID {
			return &ForbiddenError{Message: "you can only delete your own comments or comments on your posts"}
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&model.Comment{}).Select("id").Where("id = ? OR parent_comment_id = ?", commentID, commentID)
		if err := tx.Where("comment_id IN (?)", ids).Delete(&model.CommentLike{}).Error; err != nil {
			return fmt.Errorf("failed to delete comment likes: %w", err)
		}
		if err := tx.Where("parent_comment_id = ?", commentID).Delete(&model.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete replies: %w", err)
		}
		if err := tx.Where("id = ?", commentID).Delete(&model.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		return nil
	})
}

func (s *Store) LikeComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error {
	if _, err := s.findComment(ctx, s.db, commentID); err != nil {
		return err
	}
	found, err := exists(ctx, s.db, &model.CommentLike{}, "user_id = ? AND comment_id = ?", userID, commentID)
	if err != nil {
		return fmt.Errorf("failed to check comment like: %w", err)
	}
	if found {
		return &ConflictError{Message: "you have already liked this comment", Code: "already_liked"}
	}
	if err := s.db.WithContext(ctx).Create(&model.CommentLike{UserID: userID, CommentID: commentID, CreatedAt: now()}).Error; err != nil {
		if isDuplicateKey(err) {
			return &ConflictError{Message: "you have already liked this comment", Code: "already_liked"}
		}
		return fmt.Errorf("failed to like comment: %w", err)
	}
	return nil
}

func (s *Store) UnlikeComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error {
	if _, err := s.findComment(ctx, s.db, commentID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&model.CommentLike{})
	if result.Error != nil {
		return fmt.Errorf("failed to unlike comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &ValidationError{Field: "commentId", Message: "not liked"}
	}
	return nil
}

func (s *Store) commentViews(ctx context.Context, comments []model.Comment) ([]registrystore.CommentView, error) {
	views := make([]registrystore.CommentView, len(comments))
	if len(comments) == 0 {
		return views, nil
	}
	ids := make([]uuid.UUID, len(comments))
	authorIDs := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		authorIDs[i] = c.AuthorID
	}
	authors, err := s.summaries(ctx, s.db, authorIDs)
	if err != nil {
		return nil, err
	}
	likeCounts, err := countBy(ctx, s.db, "comment_likes", "comment_id", ids)
	if err != nil {
		return nil, err
	}
	replyCounts, err := countBy(ctx, s.db, "comments", "parent_comment_id", ids)
	if err != nil {
		return nil, err
	}
	for i, c := range comments {
		views[i] = registrystore.CommentView{
			ID:              c.ID,
			PostID:          c.PostID,
			ParentCommentID: c.ParentCommentID,
			Content:         c.Content,
			Author:          authors[c.AuthorID],
			LikeCount:       likeCounts[c.ID],
			ReplyCount:      replyCounts[c.ID],
			CreatedAt:       c.CreatedAt,
		}
	}
	return views, nil
}
