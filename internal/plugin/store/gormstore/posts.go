package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/chirino/social-service/internal/model"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Posts ---

func (s *Store) CreatePost(ctx context.Context, authorID uuid.UUID, caption *string, imageURLs []string) (*registrystore.PostView, error) {
	if len(imageURLs) == 0 {
		return nil, &ValidationError{Field: "images", Message: "no images provided"}
	}
	ts := now()
	post := model.Post{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Caption:   caption,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	for i, u := range imageURLs {
		post.Images = append(post.Images, model.PostImage{
			ID:       uuid.New(),
			PostID:   post.ID,
			ImageURL: u,
			Position: i,
		})
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return s.GetPost(ctx, authorID, post.ID)
}

func (s *Store) ListPostsByAuthor(ctx context.Context, viewerID uuid.UUID, authorID uuid.UUID, page registrystore.PageRequest) ([]registrystore.PostView, registrystore.PageInfo, error) {
	base := s.db.WithContext(ctx).Model(&model.Post{}).Where("author_id = ?", authorID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to count posts: %w", err)
	}
	var posts []model.Post
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to list posts: %w", err)
	}
	views, err := s.postViews(ctx, viewerID, posts)
	if err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	return views, registrystore.NewPageInfo(page, total), nil
}

func (s *Store) GetPost(ctx context.Context, viewerID uuid.UUID, postID uuid.UUID) (*registrystore.PostView, error) {
	post, err := s.findPost(ctx, s.db, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.postViews(ctx, viewerID, []model.Post{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Store) UpdatePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID, caption *string) (*registrystore.PostView, error) {
	if caption == nil {
		return nil, &ValidationError{Field: "caption", Message: "no valid fields to update"}
	}
	post, err := s.findPost(ctx, s.db, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, &ForbiddenError{Message: "you can only update your own posts"}
	}
	err = s.db.WithContext(ctx).Model(post).Updates(map[string]any{
		"caption":    *caption,
		"updated_at": now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return s.GetPost(ctx, userID, postID)
}

func (s *Store) DeletePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	post, err := s.findPost(ctx, s.db, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return &ForbiddenError{Message: "you can only delete your own posts"}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&model.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&model.CommentLike{}).Error; err != nil {
			return fmt.Errorf("failed to delete comment likes: %w", err)
		}
		for _, m := range []any{&model.Comment{}, &model.Like{}, &model.SavedPost{}, &model.PostImage{}} {
			if err := tx.Where("post_id = ?", postID).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to delete post children: %w", err)
			}
		}
		if err := tx.Where("related_post_id = ?", postID).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("failed to delete notifications: %w", err)
		}
		if err := tx.Where("id = ?", postID).Delete(&model.Post{}).Error; err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		return nil
	})
}

// postViews decorates posts with authors, ordered images, counts and the
// viewer's like/save state. Input order is preserved.
func (s *Store) postViews(ctx context.Context, viewerID uuid.UUID, posts []model.Post) ([]registrystore.PostView, error) {
	views := make([]registrystore.PostView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	db := s.db.WithContext(ctx)
	postIDs := make([]uuid.UUID, len(posts))
	authorIDs := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
		authorIDs[i] = p.AuthorID
	}

	authors, err := s.summaries(ctx, s.db, authorIDs)
	if err != nil {
		return nil, err
	}
	var images []model.PostImage
	if err := db.Where("post_id IN ?", postIDs).Order("position ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to load post images: %w", err)
	}
	imagesByPost := make(map[uuid.UUID][]model.PostImage, len(posts))
	for _, img := range images {
		imagesByPost[img.PostID] = append(imagesByPost[img.PostID], img)
	}
	likeCounts, err := countBy(ctx, s.db, "likes", "post_id", postIDs)
	if err != nil {
		return nil, err
	}
	commentCounts, err := countBy(ctx, s.db, "comments", "post_id", postIDs)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	saved := map[uuid.UUID]time.Time{}
	if viewerID != uuid.Nil {
		var likes []model.Like
		if err := db.Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Find(&likes).Error; err != nil {
			return nil, fmt.Errorf("failed to load likes: %w", err)
		}
		for _, l := range likes {
			liked[l.PostID] = true
		}
		var saves []model.SavedPost
		if err := db.Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Find(&saves).Error; err != nil {
			return nil, fmt.Errorf("failed to load saves: %w", err)
		}
		for _, sp := range saves {
			saved[sp.PostID] = sp.CreatedAt
		}
	}

	for i, p := range posts {
		imgs := imagesByPost[p.ID]
		if imgs == nil {
			imgs = []model.PostImage{}
		}
		v := registrystore.PostView{
			ID:           p.ID,
			Caption:      p.Caption,
			Author:       authors[p.AuthorID],
			Images:       imgs,
			LikeCount:    likeCounts[p.ID],
			CommentCount: commentCounts[p.ID],
			IsLiked:      liked[p.ID],
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		}
		if at, ok := saved[p.ID]; ok {
			v.IsSaved = true
			v.SavedAt = ptr(at)
		}
		views[i] = v
	}
	return views, nil
}

// --- Likes and saves ---

func (s *Store) LikePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.findPost(ctx, tx, postID)
		if err != nil {
			return err
		}
		found, err := exists(ctx, tx, &model.Like{}, "user_id = ? AND post_id = ?", userID, postID)
		if err != nil {
			return fmt.Errorf("failed to check like: %w", err)
		}
		if found {
			return &ConflictError{Message: "you have already liked this post", Code: "already_liked"}
		}
		if err := tx.Create(&model.Like{UserID: userID, PostID: postID, CreatedAt: now()}).Error; err != nil {
			if isDuplicateKey(err) {
				return &ConflictError{Message: "you have already liked this post", Code: "already_liked"}
			}
			return fmt.Errorf("failed to like post: %w", err)
		}
		return s.notify(ctx, tx, model.Notification{
			UserID:        post.AuthorID,
			Type:          model.NotificationLike,
			Content:       "liked your post",
			RelatedUserID: &userID,
			RelatedPostID: &postID,
		})
	})
}

func (s *Store) UnlikePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	if _, err := s.findPost(ctx, s.db, postID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&model.Like{})
	if result.Error != nil {
		return fmt.Errorf("failed to unlike post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &ValidationError{Field: "postId", Message: "not liked"}
	}
	return nil
}

func (s *Store) SavePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	if _, err := s.findPost(ctx, s.db, postID); err != nil {
		return err
	}
	found, err := exists(ctx, s.db, &model.SavedPost{}, "user_id = ? AND post_id = ?", userID, postID)
	if err != nil {
		return fmt.Errorf("failed to check save: %w", err)
	}
	if found {
		return &ConflictError{Message: "you have already saved this post", Code: "already_saved"}
	}
	if err := s.db.WithContext(ctx).Create(&model.SavedPost{UserID: userID, PostID: postID, CreatedAt: now()}).Error; err != nil {
		if isDuplicateKey(err) {
			return &ConflictError{Message: "you have already saved this post", Code: "already_saved"}
		}
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

func (s *Store) UnsavePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	if _, err := s.findPost(ctx, s.db, postID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&model.SavedPost{})
	if result.Error != nil {
		return fmt.Errorf("failed to unsave post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &ValidationError{Field: "postId", Message: "not saved"}
	}
	return nil
}

func (s *Store) ListSavedPosts(ctx context.Context, userID uuid.UUID, page registrystore.PageRequest) ([]registrystore.PostView, registrystore.PageInfo, error) {
	base := s.db.WithContext(ctx).Model(&model.SavedPost{}).Where("user_id = ?", userID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to count saved posts: %w", err)
	}
	var saves []model.SavedPost
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&saves).Error
	if err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to list saved posts: %w", err)
	}
	if len(saves) == 0 {
		return []registrystore.PostView{}, registrystore.NewPageInfo(page, total), nil
	}
	ids := make([]uuid.UUID, len(saves))
	for i, sp := range saves {
		ids[i] = sp.PostID
	}
	var posts []model.Post
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to load saved posts: %w", err)
	}
	byID := make(map[uuid.UUID]model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]model.Post, 0, len(saves))
	for _, sp := range saves {
		if p, ok := byID[sp.PostID]; ok {
			ordered = append(ordered, p)
		}
	}
	views, err := s.postViews(ctx, userID, ordered)
	if err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	return views, registrystore.NewPageInfo(page, total), nil
}
