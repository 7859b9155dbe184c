package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationFollow  NotificationType = "follow"
	NotificationComment NotificationType = "comment"
)

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"                  gorm:"primaryKey;type:uuid"`
	Username     string    `json:"username"            gorm:"not null;uniqueIndex"`
	Email        string    `json:"email"               gorm:"not null;uniqueIndex"`
	PasswordHash string    `json:"-"                   gorm:"not null"`
	FullName     string    `json:"fullName"            gorm:"not null"`
	Bio          *string   `json:"bio,omitempty"`
	AvatarURL    *string   `json:"avatarUrl,omitempty" gorm:"type:text"`
	IsVerified   bool      `json:"isVerified"          gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"           gorm:"not null"`
	UpdatedAt    time.Time `json:"updatedAt"           gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Summary returns the display projection of the user.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		AvatarURL:  u.AvatarURL,
		IsVerified: u.IsVerified,
	}
}

// UserSummary is the display projection of a user attached to posts, comments and messages.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"fullName"`
	AvatarURL  *string   `json:"avatarUrl,omitempty"`
	IsVerified bool      `json:"isVerified"`
}

// Follow is a directed follower -> following edge. The composite key makes it unique.
type Follow struct {
	FollowerID  uuid.UUID `json:"followerId"  gorm:"primaryKey;type:uuid"`
	FollowingID uuid.UUID `json:"followingId" gorm:"primaryKey;type:uuid;index"`
	CreatedAt   time.Time `json:"createdAt"   gorm:"not null"`
}

func (Follow) TableName() string { return "follows" }

// Post is an image post.
type Post struct {
	ID        uuid.UUID   `json:"id"                gorm:"primaryKey;type:uuid"`
	AuthorID  uuid.UUID   `json:"authorId"          gorm:"not null;type:uuid;index:idx_posts_author_created,priority:1"`
	Caption   *string     `json:"caption,omitempty"`
	Images    []PostImage `json:"images"            gorm:"foreignKey:PostID"`
	CreatedAt time.Time   `json:"createdAt"         gorm:"not null;index:idx_posts_author_created,priority:2"`
	UpdatedAt time.Time   `json:"updatedAt"         gorm:"not null"`
}

func (Post) TableName() string { return "posts" }

// PostImage is one image of a post; Position keeps the upload order.
type PostImage struct {
	ID       uuid.UUID `json:"id"       gorm:"primaryKey;type:uuid"`
	PostID   uuid.UUID `json:"postId"   gorm:"not null;type:uuid;index"`
	ImageURL string    `json:"imageUrl" gorm:"not null;type:text"`
	Position int       `json:"order"    gorm:"not null"`
}

func (PostImage) TableName() string { return "post_images" }

// Like records that a user likes a post. At most one per (user, post).
type Like struct {
	UserID    uuid.UUID `json:"userId"    gorm:"primaryKey;type:uuid"`
	PostID    uuid.UUID `json:"postId"    gorm:"primaryKey;type:uuid;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (Like) TableName() string { return "likes" }

// SavedPost is a bookmark of a post by a user.
type SavedPost struct {
	UserID    uuid.UUID `json:"userId"    gorm:"primaryKey;type:uuid"`
	PostID    uuid.UUID `json:"postId"    gorm:"primaryKey;type:uuid;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (SavedPost) TableName() string { return "saved_posts" }

// Comment is a comment on a post. Replies carry ParentCommentID.
type Comment struct {
	ID              uuid.UUID  `json:"id"                        gorm:"primaryKey;type:uuid"`
	PostID          uuid.UUID  `json:"postId"                    gorm:"not null;type:uuid;index"`
	AuthorID        uuid.UUID  `json:"authorId"                  gorm:"not null;type:uuid"`
	ParentCommentID *uuid.UUID `json:"parentCommentId,omitempty" gorm:"type:uuid;index"`
	Content         string     `json:"content"                   gorm:"not null;type:text"`
	CreatedAt       time.Time  `json:"createdAt"                 gorm:"not null"`
	UpdatedAt       time.Time  `json:"updatedAt"                 gorm:"not null"`
}

func (Comment) TableName() string { return "comments" }

// CommentLike records that a user likes a comment.
type CommentLike struct {
	UserID    uuid.UUID `json:"userId"    gorm:"primaryKey;type:uuid"`
	CommentID uuid.UUID `json:"commentId" gorm:"primaryKey;type:uuid;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (CommentLike) TableName() string { return "comment_likes" }

// Group is a named group chat.
type Group struct {
	ID        uuid.UUID `json:"id"                  gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name"                gorm:"not null"`
	AvatarURL *string   `json:"avatarUrl,omitempty" gorm:"type:text"`
	CreatorID uuid.UUID `json:"creatorId"           gorm:"not null;type:uuid"`
	CreatedAt time.Time `json:"createdAt"           gorm:"not null"`
}

func (Group) TableName() string { return "chat_groups" }

// GroupMember is the membership record between a user and a group.
type GroupMember struct {
	GroupID  uuid.UUID `json:"groupId"  gorm:"primaryKey;type:uuid"`
	UserID   uuid.UUID `json:"userId"   gorm:"primaryKey;type:uuid;index"`
	JoinedAt time.Time `json:"joinedAt" gorm:"not null"`
}

func (GroupMember) TableName() string { return "group_members" }

// Message is a direct (ReceiverID set) or group (GroupID set) message.
// IDs are assigned by the database in insertion order.
type Message struct {
	ID         int64      `json:"id"                   gorm:"primaryKey;autoIncrement"`
	SenderID   uuid.UUID  `json:"senderId"             gorm:"not null;type:uuid;index"`
	ReceiverID *uuid.UUID `json:"receiverId,omitempty" gorm:"type:uuid;index;check:messages_one_target,(receiver_id IS NULL) <> (group_id IS NULL)"`
	GroupID    *uuid.UUID `json:"groupId,omitempty"    gorm:"type:uuid;index"`
	Content    *string    `json:"content,omitempty"    gorm:"type:text;check:messages_has_body,content IS NOT NULL OR media_url IS NOT NULL"`
	MediaURL   *string    `json:"mediaUrl,omitempty"   gorm:"type:text"`
	IsRead     bool       `json:"isRead"               gorm:"not null;default:false"`
	CreatedAt  time.Time  `json:"createdAt"            gorm:"not null;index"`
}

func (Message) TableName() string { return "messages" }

// IsDirect reports whether the message belongs to a 1:1 thread.
func (m Message) IsDirect() bool { return m.ReceiverID != nil && m.GroupID == nil }

// CounterpartID returns the other participant of a direct message as seen by userID.
func (m Message) CounterpartID(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID && m.ReceiverID != nil {
		return *m.ReceiverID
	}
	return m.SenderID
}

// Notification tells a user that someone interacted with them or their content.
type Notification struct {
	ID            uuid.UUID        `json:"id"                      gorm:"primaryKey;type:uuid"`
	UserID        uuid.UUID        `json:"userId"                  gorm:"not null;type:uuid;index"`
	Type          NotificationType `json:"type"                    gorm:"not null"`
	Content       string           `json:"content"                 gorm:"not null"`
	RelatedUserID *uuid.UUID       `json:"relatedUserId,omitempty" gorm:"type:uuid"`
	RelatedPostID *uuid.UUID       `json:"relatedPostId,omitempty" gorm:"type:uuid"`
	IsRead        bool             `json:"isRead"                  gorm:"not null;default:false"`
	CreatedAt     time.Time        `json:"createdAt"               gorm:"not null"`
}

func (Notification) TableName() string { return "notifications" }

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Follow{},
		&Post{},
		&PostImage{},
		&Like{},
		&SavedPost{},
		&Comment{},
		&CommentLike{},
		&Group{},
		&GroupMember{},
		&Message{},
		&Notification{},
	}
}
