package local

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rivulet/internal/model"
	"rivulet/internal/snowflake"
)

// Filter kinds stored in feed_filters.
const (
	filterMute  = "mute"
	filterBlock = "block"
)

type storedChannel struct {
	Uid    string
	Name   string
	Sort   int
	Unread int
}

type storedFeed struct {
	ID           int64
	ChannelUid   string
	URL          string
	Name         string
	Photo        string
	SiteURL      string
	ETag         string
	LastModified string
}

// store wraps the adapter's sqlite tables.
type store struct {
	db *sql.DB
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *store) listChannels(ctx context.Context) ([]storedChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.uid, c.name, c.sort,
		       (SELECT COUNT(*) FROM entries e WHERE e.channel_uid = c.uid AND e.is_read = 0)
		FROM channels c
		ORDER BY c.sort, c.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []storedChannel
	for rows.Next() {
		var c storedChannel
		if err := rows.Scan(&c.Uid, &c.Name, &c.Sort, &c.Unread); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (s *store) channelExists(ctx context.Context, uid string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM channels WHERE uid = ?`, uid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check channel: %w", err)
	}
	return true, nil
}

func (s *store) channelByName(ctx context.Context, name string) (storedChannel, bool, error) {
	var c storedChannel
	err := s.db.QueryRowContext(ctx, `SELECT uid, name, sort FROM channels WHERE name = ?`, name).
		Scan(&c.Uid, &c.Name, &c.Sort)
	if err == sql.ErrNoRows {
		return storedChannel{}, false, nil
	}
	if err != nil {
		return storedChannel{}, false, fmt.Errorf("channel by name: %w", err)
	}
	return c, true, nil
}

func (s *store) createChannel(ctx context.Context, name string) (storedChannel, error) {
	uid := fmt.Sprintf("chn-%d", snowflake.NextID())

	var maxSort sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(sort) FROM channels`).Scan(&maxSort); err != nil {
		return storedChannel{}, fmt.Errorf("max sort: %w", err)
	}
	sort := int(maxSort.Int64) + 1

	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (uid, name, sort, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, uid, name, sort, ts, ts)
	if err != nil {
		return storedChannel{}, fmt.Errorf("create channel: %w", err)
	}
	return storedChannel{Uid: uid, Name: name, Sort: sort}, nil
}

func (s *store) renameChannel(ctx context.Context, uid, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE channels SET name = ?, updated_at = ? WHERE uid = ?
	`, name, now(), uid)
	if err != nil {
		return fmt.Errorf("rename channel: %w", err)
	}
	return nil
}

func (s *store) deleteChannel(ctx context.Context, uid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

// orderChannels assigns sort positions following the order of uids.
// Uids not in the list keep their position relative to the reordered
// block by being pushed after it.
func (s *store) orderChannels(ctx context.Context, uids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	for i, uid := range uids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE channels SET sort = ?, updated_at = ? WHERE uid = ?
		`, i, ts, uid); err != nil {
			return fmt.Errorf("order channel %s: %w", uid, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE channels SET sort = sort + ? WHERE uid NOT IN (`+placeholders(len(uids))+`)
	`, append([]any{len(uids)}, toAny(uids)...)...); err != nil {
		return fmt.Errorf("shift channels: %w", err)
	}

	return tx.Commit()
}

func (s *store) listFeeds(ctx context.Context, channelUid string) ([]storedFeed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_uid, url, COALESCE(name, ''), COALESCE(photo, ''),
		       COALESCE(site_url, ''), COALESCE(etag, ''), COALESCE(last_modified, '')
		FROM feeds WHERE channel_uid = ? ORDER BY created_at
	`, channelUid)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()
	return scanFeeds(rows)
}

func (s *store) allFeeds(ctx context.Context) ([]storedFeed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_uid, url, COALESCE(name, ''), COALESCE(photo, ''),
		       COALESCE(site_url, ''), COALESCE(etag, ''), COALESCE(last_modified, '')
		FROM feeds ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("all feeds: %w", err)
	}
	defer rows.Close()
	return scanFeeds(rows)
}

func scanFeeds(rows *sql.Rows) ([]storedFeed, error) {
	var feeds []storedFeed
	for rows.Next() {
		var f storedFeed
		if err := rows.Scan(&f.ID, &f.ChannelUid, &f.URL, &f.Name, &f.Photo, &f.SiteURL, &f.ETag, &f.LastModified); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (s *store) feedByURL(ctx context.Context, channelUid, url string) (storedFeed, bool, error) {
	var f storedFeed
	err := s.db.QueryRowContext(ctx, `
		SELECT id, channel_uid, url, COALESCE(name, ''), COALESCE(photo, ''),
		       COALESCE(site_url, ''), COALESCE(etag, ''), COALESCE(last_modified, '')
		FROM feeds WHERE channel_uid = ? AND url = ?
	`, channelUid, url).Scan(&f.ID, &f.ChannelUid, &f.URL, &f.Name, &f.Photo, &f.SiteURL, &f.ETag, &f.LastModified)
	if err == sql.ErrNoRows {
		return storedFeed{}, false, nil
	}
	if err != nil {
		return storedFeed{}, false, fmt.Errorf("feed by url: %w", err)
	}
	return f, true, nil
}

func (s *store) anyFeedWithURL(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM feeds WHERE url = ? LIMIT 1`, url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("feed with url: %w", err)
	}
	return true, nil
}

func (s *store) createFeed(ctx context.Context, f storedFeed) (int64, error) {
	id := snowflake.NextID()
	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (id, channel_uid, url, name, photo, site_url, etag, last_modified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel_uid, url) DO UPDATE SET
		  name = excluded.name, photo = excluded.photo, site_url = excluded.site_url, updated_at = excluded.updated_at
	`, id, f.ChannelUid, f.URL, f.Name, f.Photo, f.SiteURL, f.ETag, f.LastModified, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create feed: %w", err)
	}

	stored, _, err := s.feedByURL(ctx, f.ChannelUid, f.URL)
	if err != nil {
		return 0, err
	}
	return stored.ID, nil
}

func (s *store) deleteFeed(ctx context.Context, channelUid, url string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feeds WHERE channel_uid = ? AND url = ?`, channelUid, url)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	return nil
}

func (s *store) saveFeedCache(ctx context.Context, feedID int64, etag, lastModified string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET etag = ?, last_modified = ?, updated_at = ? WHERE id = ?
	`, etag, lastModified, now(), feedID)
	if err != nil {
		return fmt.Errorf("save feed cache: %w", err)
	}
	return nil
}

// upsertEntry inserts an entry, keeping the stored read state when the
// entry was already seen.
func (s *store) upsertEntry(ctx context.Context, feedID int64, channelUid string, e model.Entry) error {
	var html, text string
	if e.Content != nil {
		html = e.Content.HTML
		text = e.Content.Text
	}
	var authorName, authorURL, authorPhoto string
	if e.Author != nil {
		authorName = e.Author.Name
		authorURL = e.Author.URL
		authorPhoto = e.Author.Photo
	}
	var photo string
	if len(e.Photo) > 0 {
		photo = e.Photo[0]
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, uid, feed_id, channel_uid, url, name, content_html, content_text,
		                     author_name, author_url, author_photo, photo, published, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT (channel_uid, uid) DO UPDATE SET
		  url = excluded.url, name = excluded.name,
		  content_html = excluded.content_html, content_text = excluded.content_text,
		  author_name = excluded.author_name, author_url = excluded.author_url,
		  author_photo = excluded.author_photo, photo = excluded.photo,
		  published = excluded.published
	`, snowflake.NextID(), e.ID, feedID, channelUid, e.URL, e.Name, html, text,
		authorName, authorURL, authorPhoto, photo, e.Published, now())
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

type entryFilter struct {
	ChannelUid string
	Before     string
	After      string
	Limit      int
	Search     string
}

// listEntries returns entries for a channel, newest first, excluding
// entries from muted or blocked feed URLs. Before/After are exclusive
// published bounds.
func (s *store) listEntries(ctx context.Context, f entryFilter) ([]model.Entry, error) {
	query := `
		SELECT e.uid, COALESCE(e.url, ''), COALESCE(e.name, ''),
		       COALESCE(e.content_html, ''), COALESCE(e.content_text, ''),
		       COALESCE(e.author_name, ''), COALESCE(e.author_url, ''), COALESCE(e.author_photo, ''),
		       COALESCE(e.photo, ''), COALESCE(e.published, ''), e.is_read
		FROM entries e
		JOIN feeds f ON f.id = e.feed_id
		WHERE f.url NOT IN (SELECT url FROM feed_filters WHERE channel_uid = e.channel_uid)
	`
	args := []any{}
	if f.ChannelUid != "" {
		query += ` AND e.channel_uid = ?`
		args = append(args, f.ChannelUid)
	}
	if f.Before != "" {
		query += ` AND e.published < ?`
		args = append(args, f.Before)
	}
	if f.After != "" {
		query += ` AND e.published > ?`
		args = append(args, f.After)
	}
	if f.Search != "" {
		query += ` AND (e.name LIKE ? OR e.content_text LIKE ?)`
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY e.published DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var (
			e                                  model.Entry
			html, text                         string
			authorName, authorURL, authorPhoto string
			photo                              string
			isRead                             bool
		)
		if err := rows.Scan(&e.ID, &e.URL, &e.Name, &html, &text,
			&authorName, &authorURL, &authorPhoto, &photo, &e.Published, &isRead); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = model.TypeEntry
		if html != "" || text != "" {
			e.Content = &model.Content{HTML: html, Text: text}
		}
		if authorName != "" || authorURL != "" || authorPhoto != "" {
			e.Author = &model.Card{Type: "card", Name: authorName, URL: authorURL, Photo: authorPhoto}
		}
		if photo != "" {
			e.Photo = []string{photo}
		}
		e.Read = &isRead
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// setRead flips the read flag for the given entry uids. Idempotent:
// re-marking entries already in the target state succeeds.
func (s *store) setRead(ctx context.Context, channelUid string, uids []string, read bool) error {
	if len(uids) == 0 {
		return nil
	}
	args := []any{read, channelUid}
	args = append(args, toAny(uids)...)
	_, err := s.db.ExecContext(ctx, `
		UPDATE entries SET is_read = ? WHERE channel_uid = ? AND uid IN (`+placeholders(len(uids))+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("set read: %w", err)
	}
	return nil
}

func (s *store) deleteEntry(ctx context.Context, channelUid, uid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE channel_uid = ? AND uid = ?`, channelUid, uid)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *store) listFilters(ctx context.Context, channelUid, kind string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url FROM feed_filters WHERE channel_uid = ? AND kind = ? ORDER BY created_at
	`, channelUid, kind)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

func (s *store) addFilter(ctx context.Context, channelUid, url, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_filters (id, channel_uid, url, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (channel_uid, url, kind) DO NOTHING
	`, snowflake.NextID(), channelUid, url, kind, now())
	if err != nil {
		return fmt.Errorf("add filter: %w", err)
	}
	return nil
}

func (s *store) removeFilter(ctx context.Context, channelUid, url, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM feed_filters WHERE channel_uid = ? AND url = ? AND kind = ?
	`, channelUid, url, kind)
	if err != nil {
		return fmt.Errorf("remove filter: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
