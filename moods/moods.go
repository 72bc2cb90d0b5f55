// Package moods holds mood entries, the shared activity catalogue and the
// rolling analytics computed over a user's recent entries.
package moods

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Rating bounds. Ratings map to Very Bad (1) through Very Good (5).
const (
	MinRating = 1
	MaxRating = 5
)

// AnalyticsWindow is the look-back period of Analytics.
const AnalyticsWindow = 30 * 24 * time.Hour

var (
	ErrNotFound      = errors.New("moods: not found")
	ErrInvalidRating = errors.New("moods: rating must be between 1 and 5")
	ErrInvalidName   = errors.New("moods: activity name must be 1-100 characters")
	ErrInvalidIcon   = errors.New("moods: activity icon must be at most 50 characters")
)

// RatingLabels names each rating.
var RatingLabels = map[int]string{
	1: "Very Bad",
	2: "Bad",
	3: "Neutral",
	4: "Good",
	5: "Very Good",
}

type Activity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type ActivityInput struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (in *ActivityInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	if in.Name == "" || utf8.RuneCountInString(in.Name) > 100 {
		return ErrInvalidName
	}
	if utf8.RuneCountInString(in.Icon) > 50 {
		return ErrInvalidIcon
	}
	return nil
}

type Mood struct {
	ID         int64      `json:"id"`
	UserID     uuid.UUID  `json:"-"`
	Rating     int        `json:"rating"`
	Notes      string     `json:"notes"`
	Activities []Activity `json:"activities"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MoodInput is the writable part of a mood. A nil ActivityIDs leaves the
// activities of an existing mood untouched; unknown IDs are ignored.
type MoodInput struct {
	Rating      int     `json:"rating"`
	Notes       string  `json:"notes"`
	ActivityIDs []int64 `json:"activity_ids"`
}

func (in MoodInput) Validate() error {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

type Analytics struct {
	AverageMood  float64     `json:"average_mood"`
	TotalEntries int         `json:"total_entries"`
	Distribution map[int]int `json:"mood_distribution"`
}

// Summarize computes analytics over ratings. Every rating bucket is present
// in the distribution, and the average of no entries is 0.
func Summarize(ratings []int) Analytics {
	a := Analytics{Distribution: make(map[int]int, MaxRating)}
	for r := MinRating; r <= MaxRating; r++ {
		a.Distribution[r] = 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
		a.Distribution[r]++
	}
	a.TotalEntries = len(ratings)
	if len(ratings) > 0 {
		a.AverageMood = float64(sum) / float64(len(ratings))
	}
	return a
}

// Repository is the persistence surface used by the HTTP handlers.
type Repository interface {
	ListMoods(ctx context.Context, userID uuid.UUID) ([]Mood, error)
	GetMood(ctx context.Context, userID uuid.UUID, id int64) (*Mood, error)
	CreateMood(ctx context.Context, userID uuid.UUID, in MoodInput) (*Mood, error)
	UpdateMood(ctx context.Context, userID uuid.UUID, id int64, in MoodInput) (*Mood, error)
	DeleteMood(ctx context.Context, userID uuid.UUID, id int64) error
	RatingsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]int, error)

	ListActivities(ctx context.Context) ([]Activity, error)
	GetActivity(ctx context.Context, id int64) (*Activity, error)
	CreateActivity(ctx context.Context, in ActivityInput) (*Activity, error)
	UpdateActivity(ctx context.Context, id int64, in ActivityInput) (*Activity, error)
	DeleteActivity(ctx context.Context, id int64) error
}
