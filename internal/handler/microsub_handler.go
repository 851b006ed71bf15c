package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"rivulet/internal/auth"
	"rivulet/internal/engine"
	"rivulet/internal/model"
)

// MicrosubHandler serves the single protocol endpoint. The action
// parameter (plus method for POST) selects between the aggregation
// engine and the ownership router.
type MicrosubHandler struct {
	engine *engine.Engine
}

func NewMicrosubHandler(e *engine.Engine) *MicrosubHandler {
	return &MicrosubHandler{engine: e}
}

func (h *MicrosubHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/microsub", h.Handle)
	g.POST("/microsub", h.Handle)
}

// scopeForAction maps each protocol action to the scope the token must
// carry. Enforcement of how tokens acquire scopes is the authorizer's
// concern.
func scopeForAction(action string) string {
	switch action {
	case "timeline", "search", "preview":
		return auth.ScopeRead
	case "channels":
		return auth.ScopeChannels
	case "follow", "unfollow":
		return auth.ScopeFollow
	case "mute", "unmute":
		return auth.ScopeMute
	case "block", "unblock":
		return auth.ScopeBlock
	default:
		return ""
	}
}

type channelsResponse struct {
	Channels []model.Channel `json:"channels"`
}

type itemsResponse struct {
	Items []model.Feed `json:"items"`
}

// Handle dispatches one protocol request.
func (h *MicrosubHandler) Handle(c echo.Context) error {
	action := param(c, "action")
	if action == "" {
		return invalidRequest(c, "action is required")
	}

	scope := scopeForAction(action)
	if scope == "" {
		return invalidRequest(c, "unknown action "+action)
	}

	verdict, ok := c.Get(auth.ContextKey).(auth.Verdict)
	if !ok {
		return writeEngineError(c, auth.ErrUnauthorized)
	}
	if !verdict.HasScope(scope) {
		return writeEngineError(c, fmt.Errorf("%w: action %s requires scope %s", auth.ErrInsufficientScope, action, scope))
	}

	post := c.Request().Method == http.MethodPost

	switch action {
	case "channels":
		if post {
			return h.channelsAction(c, verdict.UserID)
		}
		return h.listChannels(c, verdict.UserID)
	case "timeline":
		if post {
			return h.timelineAction(c, verdict.UserID)
		}
		return h.timeline(c, verdict.UserID)
	case "follow":
		if post {
			return h.follow(c, verdict.UserID)
		}
		return h.following(c, verdict.UserID)
	case "unfollow":
		if !post {
			return invalidRequest(c, "unfollow requires POST")
		}
		return h.unfollow(c, verdict.UserID)
	case "mute":
		if post {
			return h.mute(c, verdict.UserID)
		}
		return h.muted(c, verdict.UserID)
	case "unmute":
		if !post {
			return invalidRequest(c, "unmute requires POST")
		}
		return h.unmute(c, verdict.UserID)
	case "block":
		if post {
			return h.block(c, verdict.UserID)
		}
		return h.blocked(c, verdict.UserID)
	case "unblock":
		if !post {
			return invalidRequest(c, "unblock requires POST")
		}
		return h.unblock(c, verdict.UserID)
	case "search":
		return h.search(c, verdict.UserID)
	case "preview":
		return h.preview(c, verdict.UserID)
	}
	return invalidRequest(c, "unknown action "+action)
}

func (h *MicrosubHandler) listChannels(c echo.Context, userID string) error {
	channels, err := h.engine.Channels(c.Request().Context(), userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, channelsResponse{Channels: channels})
}

// channelsAction covers create, update, delete and order, selected by
// which parameters arrived, matching the protocol's POST overloading.
func (h *MicrosubHandler) channelsAction(c echo.Context, userID string) error {
	ctx := c.Request().Context()

	switch param(c, "method") {
	case "delete":
		if err := h.engine.DeleteChannel(ctx, param(c, "channel"), userID); err != nil {
			return writeEngineError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{})
	case "order":
		uids := multiParam(c, "channels")
		if err := h.engine.OrderChannels(ctx, uids, userID); err != nil {
			return writeEngineError(c, err)
		}
		return h.listChannels(c, userID)
	}

	name := param(c, "name")
	if uid := param(c, "channel"); uid != "" {
		channel, err := h.engine.UpdateChannel(ctx, uid, name, userID)
		if err != nil {
			return writeEngineError(c, err)
		}
		return c.JSON(http.StatusOK, channel)
	}

	channel, err := h.engine.CreateChannel(ctx, name, userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, channel)
}

func (h *MicrosubHandler) timeline(c echo.Context, userID string) error {
	q := model.TimelineQuery{
		Channel: param(c, "channel"),
		After:   param(c, "after"),
		Before:  param(c, "before"),
		Limit:   intParam(c, "limit"),
	}
	timeline, err := h.engine.Timeline(c.Request().Context(), q, userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, timeline)
}

func (h *MicrosubHandler) timelineAction(c echo.Context, userID string) error {
	ctx := c.Request().Context()
	channel := param(c, "channel")

	switch method := param(c, "method"); method {
	case "mark_read", "mark_unread":
		entries := multiParam(c, "entry")
		if last := param(c, "last_read_entry"); last != "" {
			entries = append(entries, last)
		}
		var err error
		if method == "mark_read" {
			err = h.engine.MarkRead(ctx, channel, entries, userID)
		} else {
			err = h.engine.MarkUnread(ctx, channel, entries, userID)
		}
		if err != nil {
			return writeEngineError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{})
	case "remove":
		if err := h.engine.RemoveEntry(ctx, channel, param(c, "entry"), userID); err != nil {
			return writeEngineError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{})
	default:
		return invalidRequest(c, "unknown timeline method "+method)
	}
}

func (h *MicrosubHandler) following(c echo.Context, userID string) error {
	feeds, err := h.engine.Following(c.Request().Context(), param(c, "channel"), userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, itemsResponse{Items: feeds})
}

func (h *MicrosubHandler) follow(c echo.Context, userID string) error {
	feed, err := h.engine.Follow(c.Request().Context(), param(c, "channel"), param(c, "url"), userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, feed)
}

func (h *MicrosubHandler) unfollow(c echo.Context, userID string) error {
	if err := h.engine.Unfollow(c.Request().Context(), param(c, "channel"), param(c, "url"), userID); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *MicrosubHandler) muted(c echo.Context, userID string) error {
	feeds, err := h.engine.Muted(c.Request().Context(), param(c, "channel"), userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, itemsResponse{Items: feeds})
}

func (h *MicrosubHandler) mute(c echo.Context, userID string) error {
	if err := h.engine.Mute(c.Request().Context(), param(c, "channel"), param(c, "url"), userID); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *MicrosubHandler) unmute(c echo.Context, userID string) error {
	if err := h.engine.Unmute(c.Request().Context(), param(c, "channel"), param(c, "url"), userID); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *MicrosubHandler) blocked(c echo.Context, userID string) error {
	feeds, err := h.engine.Blocked(c.Request().Context(), param(c, "channel"), userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, itemsResponse{Items: feeds})
}

func (h *MicrosubHandler) block(c echo.Context, userID string) error {
	if err := h.engine.Block(c.Request().Context(), param(c, "channel"), param(c, "url"), userID); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *MicrosubHandler) unblock(c echo.Context, userID string) error {
	if err := h.engine.Unblock(c.Request().Context(), param(c, "channel"), param(c, "url"), userID); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *MicrosubHandler) search(c echo.Context, userID string) error {
	result, err := h.engine.Search(c.Request().Context(), param(c, "query"), userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *MicrosubHandler) preview(c echo.Context, userID string) error {
	result, err := h.engine.Preview(c.Request().Context(), param(c, "url"), userID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
