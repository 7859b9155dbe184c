package messages

import (
	"net/http"
	"strconv"

	"github.com/chirino/social-service/internal/conversations"
	"github.com/chirino/social-service/internal/plugin/route/routeutil"
	registryevents "github.com/chirino/social-service/internal/registry/events"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registryroute "github.com/chirino/social-service/internal/registry/route"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	registryroute.Register(registryroute.Plugin{
		Name:  "messages",
		Order: 70,
		Type:  registryroute.RouteTypeMain,
		Loader: func(r *gin.Engine, s registryroute.Services) error {
			MountRoutes(r, s.Store, s.Auth, s.Limit, s.Media, s.Events, s.Aggregator)
			return nil
		},
	})
}

// MountRoutes mounts the messaging routes. limit throttles sends and may be nil.
func MountRoutes(r *gin.Engine, store registrystore.SocialStore, auth gin.HandlerFunc, limit gin.HandlerFunc, encoder registrymedia.Encoder, events registryevents.Publisher, aggregator *conversations.Aggregator) {
	g := r.Group("/v1/messages", auth)

	g.GET("", func(c *gin.Context) {
		listMessages(c, store, aggregator)
	})
	send := []gin.HandlerFunc{}
	if limit != nil {
		send = append(send, limit)
	}
	send = append(send, func(c *gin.Context) {
		sendMessage(c, store, encoder, events)
	})
	g.POST("", send...)
	g.GET("/:messageId", func(c *gin.Context) {
		getMessage(c, store)
	})
	g.DELETE("/:messageId", func(c *gin.Context) {
		deleteMessage(c, store)
	})
}

// threadPagination is the page metadata of a single thread.
type threadPagination struct {
	Page          int   `json:"page"`
	Limit         int   `json:"limit"`
	TotalMessages int64 `json:"totalMessages"`
	TotalPages    int   `json:"totalPages"`
	HasNext       bool  `json:"hasNext"`
	HasPrev       bool  `json:"hasPrev"`
}

func listMessages(c *gin.Context, store registrystore.SocialStore, aggregator *conversations.Aggregator) {
	ctx := c.Request.Context()
	userID := security.GetUserID(c)
	page, err := routeutil.Page(c)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	receiverID, err := routeutil.QueryUUID(c, "receiverId")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	groupID, err := routeutil.QueryUUID(c, "groupId")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}

	var msgs []registrystore.MessageView
	var info registrystore.PageInfo
	switch {
	case receiverID != nil && groupID != nil:
		routeutil.BadRequest(c, "groupId", "cannot specify both receiverId and groupId")
		return
	case receiverID != nil:
		msgs, info, err = store.ListDirectThread(ctx, userID, *receiverID, page)
	case groupID != nil:
		msgs, info, err = store.ListGroupThread(ctx, userID, *groupID, page)
	default:
		list, err := aggregator.List(ctx, userID, page)
		if err != nil {
			routeutil.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"pagination": threadPagination{
			Page:          info.Page,
			Limit:         info.Limit,
			TotalMessages: info.Total,
			TotalPages:    info.TotalPages,
			HasNext:       info.HasNext,
			HasPrev:       info.HasPrev,
		},
	})
}

func sendMessage(c *gin.Context, store registrystore.SocialStore, encoder registrymedia.Encoder, events registryevents.Publisher) {
	ctx := c.Request.Context()
	var req struct {
		Content    *string    `json:"content"`
		ReceiverID *uuid.UUID `json:"receiverId"`
		GroupID    *uuid.UUID `json:"groupId"`
	}
	in := registrystore.NewMessage{}
	if routeutil.IsMultipart(c) {
		if v, ok := c.GetPostForm("content"); ok {
			in.Content = &v
		}
		var err error
		if in.ReceiverID, err = formUUID(c, "receiverId"); err != nil {
			routeutil.HandleError(c, err)
			return
		}
		if in.GroupID, err = formUUID(c, "groupId"); err != nil {
			routeutil.HandleError(c, err)
			return
		}
		if fh, err := c.FormFile("media"); err == nil {
			ref, err := routeutil.EncodeUpload(ctx, encoder, fh)
			if err != nil {
				routeutil.HandleError(c, err)
				return
			}
			in.MediaURL = &ref
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			routeutil.HandleError(c, routeutil.BindError(err))
			return
		}
		in.Content, in.ReceiverID, in.GroupID = req.Content, req.ReceiverID, req.GroupID
	}

	msg, err := store.SendMessage(ctx, security.GetUserID(c), in)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	payload := gin.H{"messageId": msg.ID, "senderId": msg.SenderID}
	key := msg.SenderID.String()
	if msg.GroupID != nil {
		payload["groupId"] = *msg.GroupID
		key = msg.GroupID.String()
	} else if msg.ReceiverID != nil {
		payload["receiverId"] = *msg.ReceiverID
		key = msg.ReceiverID.String()
	}
	registryevents.Emit(ctx, events, registryevents.Event{
		Type:       registryevents.TypeMessageSent,
		Key:        key,
		OccurredAt: msg.CreatedAt,
		Payload:    payload,
	})
	c.JSON(http.StatusCreated, msg)
}

func formUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.PostForm(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &registrystore.ValidationError{Field: key, Message: "must be a valid id"}
	}
	return &id, nil
}

func messageID(c *gin.Context) (int64, error) {
	raw := c.Param("messageId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &registrystore.NotFoundError{Resource: "message", ID: raw}
	}
	return id, nil
}

func getMessage(c *gin.Context, store registrystore.SocialStore) {
	id, err := messageID(c)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	msg, err := store.GetMessage(c.Request.Context(), security.GetUserID(c), id)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func deleteMessage(c *gin.Context, store registrystore.SocialStore) {
	id, err := messageID(c)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	if err := store.DeleteMessage(c.Request.Context(), security.GetUserID(c), id); err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
