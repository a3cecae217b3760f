// Package domain holds the core entity types and sentinel errors shared
// across the provider, storage, import, and API layers.
package domain

import (
	"errors"
	"time"
)

// MediaKind classifies a Work and drives episode-iteration behavior:
// movies collapse to a single episode, series iterate a full list.
type MediaKind string

const (
	MediaKindTVSeries MediaKind = "tv_series"
	MediaKindMovie    MediaKind = "movie"
	MediaKindOVA      MediaKind = "ova"
	MediaKindOther    MediaKind = "other"
)

// CommentMode is the danmaku display mode encoded in a Comment's p string.
type CommentMode int

const (
	CommentModeScroll      CommentMode = 1
	CommentModeBottomFixed CommentMode = 4
	CommentModeTopFixed    CommentMode = 5
)

// Work is a show or film in the library. (Title, Season) uniquely
// identifies a Work.
type Work struct {
	ID        int64
	Title     string // normalized: ':' -> '：'
	Kind      MediaKind
	Season    int // default 1
	PosterURL string
	CreatedAt time.Time
}

// WorkMetadata carries external IDs for a Work, 1:1. Fields follow
// fill-if-absent semantics: an update only writes a field that is
// currently empty.
type WorkMetadata struct {
	WorkID             int64
	TmdbID             string
	TmdbEpisodeGroupID string
	BangumiID          string
	TvdbID             string
	DoubanID           string
	ImdbID             string
}

// WorkAliases holds the seven fixed alias slots for a Work, 1:1,
// fill-if-absent. Slot count is fixed by design — see DESIGN.md Open
// Questions.
type WorkAliases struct {
	WorkID int64
	EN     string
	JP     string
	Romaji string
	CN1    string
	CN2    string
	CN3    string
}

// Source binds one (Provider, ProviderMediaID) pair to a Work.
// (Provider, ProviderMediaID) is globally unique; at most one Source per
// Work has Favorited=true.
type Source struct {
	ID              int64
	WorkID          int64
	Provider        string
	ProviderMediaID string
	Favorited       bool
	CreatedAt       time.Time
}

// Episode belongs to a Source. (SourceID, Index) is unique; a successful
// full import of N episodes leaves indices 1..N present with no gaps.
type Episode struct {
	ID                int64
	SourceID          int64
	Index             int // 1-based
	Title             string
	PlaybackURL       string
	ProviderEpisodeID string
	FetchedAt         time.Time
	CommentCount      int
}

// Comment belongs to an Episode. (EpisodeID, CID) is unique; duplicate
// inserts are silently ignored.
type Comment struct {
	ID        int64
	EpisodeID int64
	CID       string  // provider comment id
	P         string  // "t_seconds,mode,color,[provider]"
	M         string  // message text
	T         float64 // time offset in seconds
}

// TmdbEpisodeMapping records one episode's position within a TMDB episode
// group, alongside its native season/episode numbering. The full row set
// for a group is replaced atomically on every recompute.
type TmdbEpisodeMapping struct {
	TmdbTVID             string
	GroupID              string
	TmdbEpisodeID        string
	TmdbSeasonNumber     int
	TmdbEpisodeNumber    int
	CustomSeasonNumber   int
	CustomEpisodeNumber  int
	AbsoluteEpisodeNumber int
}

// ScraperSetting records a provider's enable/order state. Rows are
// auto-created on adapter discovery and only otherwise updated by an
// administrator.
type ScraperSetting struct {
	Provider     string
	IsEnabled    bool
	DisplayOrder int
}

// ApiToken gates the compatibility playback API.
type ApiToken struct {
	ID        int64
	Token     string
	Label     string
	Enabled   bool
	ExpiresAt *time.Time
}

// ScheduledTask is a cron-driven job registration.
type ScheduledTask struct {
	ID             int64
	Name           string
	JobType        string
	CronExpression string
	Enabled        bool
	LastRun        *time.Time
	NextRun        *time.Time
}

// TaskStatus is the monotonic state of a TaskHistory row.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskHistory is a persisted record of one task engine submission.
type TaskHistory struct {
	TaskID      int64
	Title       string
	Status      TaskStatus
	Progress    int // 0-100
	Description string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// CacheEntry is the persisted form of a cache record; the runtime fast
// path is internal/cache (Redis or in-memory), but the relational store
// also records entries so they survive a cache-layer restart and so TTL
// sweeping has a single source of truth across both layers.
type CacheEntry struct {
	Provider  string
	Key       string
	ValueJSON string
	ExpiresAt time.Time
}

// ProviderSearchInfo is one adapter search result (spec §4.1).
type ProviderSearchInfo struct {
	Provider            string
	MediaID             string
	Title               string
	MediaKind           MediaKind
	Year                int
	Season              int
	PosterURL           string
	EpisodeCount        int
	CurrentEpisodeIndex int // 0 = not set
}

// ProviderEpisodeInfo is one entry of an adapter's episode list.
type ProviderEpisodeInfo struct {
	Index             int // 1-based
	Title             string
	PlaybackURL       string
	ProviderEpisodeID string
}

// NormalizedComment is a danmaku record as handed back by
// Adapter.GetComments, prior to persistence.
type NormalizedComment struct {
	CID string
	P   string
	M   string
	T   float64
}

// ProgressCallback reports task progress; may be called from any
// goroutine. (progress 0-100, human-readable description)
type ProgressCallback func(progress int, description string)

var (
	ErrUnknownProvider  = errors.New("domain: unknown provider")
	ErrInvalidMediaID   = errors.New("domain: invalid media id")
	ErrInvalidEpisodeID = errors.New("domain: invalid episode id")
	ErrTokenInvalid     = errors.New("domain: token invalid or expired")
	ErrNotFound         = errors.New("domain: not found")
)
