// Package gormstore implements registrystore.SocialStore on top of GORM. It is
// shared by the postgres and sqlite store plugins.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chirino/social-service/internal/model"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type NotFoundError = registrystore.NotFoundError
type ValidationError = registrystore.ValidationError
type ConflictError = registrystore.ConflictError
type ForbiddenError = registrystore.ForbiddenError

// Store implements SocialStore using GORM.
type Store struct {
	db *gorm.DB
}

var _ registrystore.SocialStore = (*Store)(nil)

// New wraps an open GORM connection. The connection should be opened with
// TranslateError enabled so unique violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for readiness probes.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// now returns the current time at the precision every supported database keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// isDuplicateKey reports whether err is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// sqlite without error translation
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) findUserByUsername(ctx context.Context, tx *gorm.DB, username string) (*model.User, error) {
	var u model.User
	result := tx.WithContext(ctx).Where("username = ?", username).Limit(1).Find(&u)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "user", ID: username}
	}
	return &u, nil
}

func (s *Store) findPost(ctx context.Context, tx *gorm.DB, postID uuid.UUID) (*model.Post, error) {
	var p model.Post
	result := tx.WithContext(ctx).Where("id = ?", postID).Limit(1).Find(&p)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "post", ID: postID.String()}
	}
	return &p, nil
}

func (s *Store) findComment(ctx context.Context, tx *gorm.DB, commentID uuid.UUID) (*model.Comment, error) {
	var c model.Comment
	result := tx.WithContext(ctx).Where("id = ?", commentID).Limit(1).Find(&c)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "comment", ID: commentID.String()}
	}
	return &c, nil
}

// exists reports whether at least one row of m matches the condition.
func exists(ctx context.Context, tx *gorm.DB, m any, query string, args ...any) (bool, error) {
	var n int64
	if err := tx.WithContext(ctx).Model(m).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// summaries loads display projections for the given users keyed by id.
func (s *Store) summaries(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error) {
	out := make(map[uuid.UUID]model.UserSummary, len(ids))
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

type countRow struct {
	Key   uuid.UUID `gorm:"column:k"`
	Count int64     `gorm:"column:n"`
}

// countBy counts rows of table grouped by column for the given keys.
func countBy(ctx context.Context, tx *gorm.DB, table, column string, keys []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var rows []countRow
	err := tx.WithContext(ctx).
		Table(table).
		Select(column+" AS k, COUNT(*) AS n").
		Where(column+" IN ?", keys).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", table, err)
	}
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Store) notify(ctx context.Context, tx *gorm.DB, n model.Notification) error {
	if n.RelatedUserID != nil && *n.RelatedUserID == n.UserID {
		return nil
	}
	n.ID = uuid.New()
	n.CreatedAt = now()
	if err := tx.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
