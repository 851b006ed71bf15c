package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"rivulet/internal/adapter"
	"rivulet/internal/auth"
	"rivulet/internal/engine"
	"rivulet/internal/handler"
	transport "rivulet/internal/http"
	"rivulet/internal/model"
)

const testToken = "test-token"

// scopedAuthorizer grants a fixed scope set to one token.
type scopedAuthorizer struct {
	scopes []string
}

func (s *scopedAuthorizer) Verify(ctx context.Context, token string) (auth.Verdict, error) {
	if token != testToken {
		return auth.Verdict{}, auth.ErrUnauthorized
	}
	return auth.Verdict{UserID: "me", Scopes: s.scopes}, nil
}

func allScopes() []string {
	return []string{auth.ScopeRead, auth.ScopeChannels, auth.ScopeFollow, auth.ScopeMute, auth.ScopeBlock}
}

// stub adapter types mirroring the contract for endpoint tests.

type stubAdapter struct {
	adapter.Base
	channels []model.Channel
	items    []model.Entry
	feeds    []model.Feed
	follow   adapter.Result[model.Feed]
}

func newStub() *stubAdapter {
	return &stubAdapter{
		Base:   adapter.Base{AdapterID: "stub", DisplayName: "Stub"},
		follow: adapter.Pass[model.Feed](),
	}
}

func (s *stubAdapter) Channels(ctx context.Context, acc []model.Channel, userID string) ([]model.Channel, error) {
	return append(acc, s.channels...), nil
}

func (s *stubAdapter) Timeline(ctx context.Context, acc *model.Timeline, q model.TimelineQuery, userID string) (*model.Timeline, error) {
	acc.Items = append(acc.Items, s.items...)
	return acc, nil
}

func (s *stubAdapter) Following(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error) {
	return append(acc, s.feeds...), nil
}

func (s *stubAdapter) Follow(ctx context.Context, channel, url, userID string) adapter.Result[model.Feed] {
	return s.follow
}

func (s *stubAdapter) Unfollow(ctx context.Context, channel, url, userID string) adapter.Ack {
	return adapter.Done()
}

type stubManager struct {
	*stubAdapter
	marked [][]string
}

func (m *stubManager) CreateChannel(ctx context.Context, name, userID string) adapter.Result[model.Channel] {
	return adapter.Handled(model.Channel{Uid: "chn-1", Name: name})
}

func (m *stubManager) UpdateChannel(ctx context.Context, uid, name, userID string) adapter.Result[model.Channel] {
	return adapter.Handled(model.Channel{Uid: uid, Name: name})
}

func (m *stubManager) DeleteChannel(ctx context.Context, uid, userID string) adapter.Ack {
	return adapter.Done()
}

func (m *stubManager) OrderChannels(ctx context.Context, uids []string, userID string) adapter.Ack {
	return adapter.Done()
}

func (m *stubManager) MarkRead(ctx context.Context, channel string, entries []string, userID string) adapter.Ack {
	m.marked = append(m.marked, entries)
	return adapter.Done()
}

func (m *stubManager) MarkUnread(ctx context.Context, channel string, entries []string, userID string) adapter.Ack {
	return adapter.Done()
}

func (m *stubManager) RemoveEntry(ctx context.Context, channel, entry, userID string) adapter.Ack {
	return adapter.Done()
}

func newServer(t *testing.T, scopes []string, adapters ...adapter.Adapter) http.Handler {
	t.Helper()
	reg, err := adapter.NewRegistry(adapters...)
	require.NoError(t, err)
	return transport.NewRouter(
		handler.NewMicrosubHandler(engine.New(reg)),
		&scopedAuthorizer{scopes: scopes},
	)
}

func doGet(t *testing.T, h http.Handler, query url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/microsub?"+query.Encode(), nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doPost(t *testing.T, h http.Handler, form url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/microsub", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"channels"}}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized", errorCode(t, rec))
}

func TestInsufficientScopeIsForbidden(t *testing.T) {
	stub := newStub()
	stub.channels = []model.Channel{{Uid: "home", Name: "Home"}}
	h := newServer(t, []string{auth.ScopeRead}, stub)

	rec := doGet(t, h, url.Values{"action": {"channels"}}, testToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "insufficient_scope", errorCode(t, rec))
}

func TestMissingActionIsInvalid(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestUnknownActionIsInvalid(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"frobnicate"}}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChannelsListNotImplementedWhenEmpty(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"channels"}}, testToken)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.Equal(t, "not_implemented", errorCode(t, rec))
}

func TestChannelsList(t *testing.T) {
	stub := newStub()
	stub.channels = []model.Channel{{Uid: "home", Name: "Home"}}
	h := newServer(t, allScopes(), stub)

	rec := doGet(t, h, url.Values{"action": {"channels"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Channels []model.Channel `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Channels, 1)
	require.Equal(t, "home", body.Channels[0].Uid)
}

func TestChannelCreateUpdateDeleteOrder(t *testing.T) {
	mgr := &stubManager{stubAdapter: newStub()}
	mgr.channels = []model.Channel{{Uid: "chn-1", Name: "Reading"}}
	h := newServer(t, allScopes(), mgr)

	rec := doPost(t, h, url.Values{"action": {"channels"}, "name": {"Reading"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var created model.Channel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "chn-1", created.Uid)

	rec = doPost(t, h, url.Values{"action": {"channels"}, "channel": {"chn-1"}, "name": {"Books"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Channel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Books", updated.Name)

	rec = doPost(t, h, url.Values{"action": {"channels"}, "method": {"order"}, "channels[]": {"chn-1"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doPost(t, h, url.Values{"action": {"channels"}, "method": {"delete"}, "channel": {"chn-1"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestChannelCreateWithoutNameIsInvalid(t *testing.T) {
	mgr := &stubManager{stubAdapter: newStub()}
	h := newServer(t, allScopes(), mgr)
	rec := doPost(t, h, url.Values{"action": {"channels"}}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestTimelineWithoutChannelIsInvalid(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"timeline"}}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestTimelineEmptyIsSuccess(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"timeline"}, "channel": {"home"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []model.Entry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Items)
	require.Empty(t, body.Items)
}

func TestTimelineMarkReadAcceptsMultipleEntries(t *testing.T) {
	mgr := &stubManager{stubAdapter: newStub()}
	h := newServer(t, allScopes(), mgr)

	form := url.Values{
		"action":  {"timeline"},
		"method":  {"mark_read"},
		"channel": {"home"},
		"entry[]": {"e1", "e2"},
	}
	rec := doPost(t, h, form, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, mgr.marked, 1)
	require.Equal(t, []string{"e1", "e2"}, mgr.marked[0])
}

func TestFollowWithoutURLIsInvalid(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doPost(t, h, url.Values{"action": {"follow"}, "channel": {"home"}}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestFollowReturnsFeed(t *testing.T) {
	stub := newStub()
	stub.follow = adapter.Handled(model.NewFeed("https://example.com/feed"))
	h := newServer(t, allScopes(), stub)

	rec := doPost(t, h, url.Values{"action": {"follow"}, "channel": {"home"}, "url": {"https://example.com/feed"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var feed model.Feed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Equal(t, model.TypeFeed, feed.Type)
	require.Equal(t, "https://example.com/feed", feed.URL)
}

func TestFollowGetListsFollowing(t *testing.T) {
	stub := newStub()
	stub.feeds = []model.Feed{model.NewFeed("https://example.com/feed")}
	h := newServer(t, allScopes(), stub)

	rec := doGet(t, h, url.Values{"action": {"follow"}, "channel": {"home"}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []model.Feed `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
}

func TestUnfollowRequiresPost(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"unfollow"}, "channel": {"home"}, "url": {"https://example.com"}}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchWithoutQueryIsInvalid(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"search"}}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestPreviewWithoutURLIsInvalid(t *testing.T) {
	h := newServer(t, allScopes(), newStub())
	rec := doGet(t, h, url.Values{"action": {"preview"}}, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestAccessTokenParamAccepted(t *testing.T) {
	stub := newStub()
	stub.channels = []model.Channel{{Uid: "home", Name: "Home"}}
	h := newServer(t, allScopes(), stub)

	rec := doGet(t, h, url.Values{"action": {"channels"}, "access_token": {testToken}}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}
