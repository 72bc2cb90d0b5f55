package testing

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PaulFidika/moodkit/moods"
)

// MemoryMoods is an in-memory moods.Repository.
type MemoryMoods struct {
	mu         sync.Mutex
	now        func() time.Time
	nextMood   int64
	nextAct    int64
	moods      map[int64]moods.Mood
	activities map[int64]moods.Activity
	links      map[int64][]int64
}

func NewMemoryMoods(now func() time.Time) *MemoryMoods {
	if now == nil {
		now = time.Now
	}
	return &MemoryMoods{
		now:        now,
		moods:      map[int64]moods.Mood{},
		activities: map[int64]moods.Activity{},
		links:      map[int64][]int64{},
	}
}

var _ moods.Repository = (*MemoryMoods)(nil)

func (m *MemoryMoods) ListMoods(_ context.Context, userID uuid.UUID) ([]moods.Mood, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []moods.Mood{}
	for _, md := range m.moods {
		if md.UserID == userID {
			out = append(out, m.hydrate(md))
		}
	}
	slices.SortFunc(out, func(a, b moods.Mood) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

func (m *MemoryMoods) GetMood(_ context.Context, userID uuid.UUID, id int64) (*moods.Mood, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.moods[id]
	if !ok || md.UserID != userID {
		return nil, moods.ErrNotFound
	}
	out := m.hydrate(md)
	return &out, nil
}

func (m *MemoryMoods) CreateMood(_ context.Context, userID uuid.UUID, in moods.MoodInput) (*moods.Mood, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMood++
	now := m.now().UTC()
	md := moods.Mood{ID: m.nextMood, UserID: userID, Rating: in.Rating, Notes: in.Notes, CreatedAt: now, UpdatedAt: now}
	m.moods[md.ID] = md
	m.link(md.ID, in.ActivityIDs)
	out := m.hydrate(md)
	return &out, nil
}

func (m *MemoryMoods) UpdateMood(_ context.Context, userID uuid.UUID, id int64, in moods.MoodInput) (*moods.Mood, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.moods[id]
	if !ok || md.UserID != userID {
		return nil, moods.ErrNotFound
	}
	md.Rating, md.Notes, md.UpdatedAt = in.Rating, in.Notes, m.now().UTC()
	m.moods[id] = md
	if in.ActivityIDs != nil {
		m.link(id, in.ActivityIDs)
	}
	out := m.hydrate(md)
	return &out, nil
}

func (m *MemoryMoods) DeleteMood(_ context.Context, userID uuid.UUID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.moods[id]
	if !ok || md.UserID != userID {
		return moods.ErrNotFound
	}
	delete(m.moods, id)
	delete(m.links, id)
	return nil
}

func (m *MemoryMoods) RatingsSince(_ context.Context, userID uuid.UUID, since time.Time) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, md := range m.moods {
		if md.UserID == userID && !md.CreatedAt.Before(since) {
			out = append(out, md.Rating)
		}
	}
	return out, nil
}

func (m *MemoryMoods) ListActivities(context.Context) ([]moods.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]moods.Activity, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b moods.Activity) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *MemoryMoods) GetActivity(_ context.Context, id int64) (*moods.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return nil, moods.ErrNotFound
	}
	return &a, nil
}

func (m *MemoryMoods) CreateActivity(_ context.Context, in moods.ActivityInput) (*moods.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAct++
	a := moods.Activity{ID: m.nextAct, Name: in.Name, Icon: in.Icon}
	m.activities[a.ID] = a
	return &a, nil
}

func (m *MemoryMoods) UpdateActivity(_ context.Context, id int64, in moods.ActivityInput) (*moods.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.activities[id]; !ok {
		return nil, moods.ErrNotFound
	}
	a := moods.Activity{ID: id, Name: in.Name, Icon: in.Icon}
	m.activities[id] = a
	return &a, nil
}

func (m *MemoryMoods) DeleteActivity(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.activities[id]; !ok {
		return moods.ErrNotFound
	}
	delete(m.activities, id)
	for moodID, ids := range m.links {
		m.links[moodID] = slices.DeleteFunc(ids, func(v int64) bool { return v == id })
	}
	return nil
}

// link replaces the activities of a mood, dropping unknown IDs.
func (m *MemoryMoods) link(moodID int64, ids []int64) {
	var kept []int64
	for _, id := range ids {
		if _, ok := m.activities[id]; ok && !slices.Contains(kept, id) {
			kept = append(kept, id)
		}
	}
	slices.Sort(kept)
	m.links[moodID] = kept
}

func (m *MemoryMoods) hydrate(md moods.Mood) moods.Mood {
	md.Activities = []moods.Activity{}
	for _, id := range m.links[md.ID] {
		md.Activities = append(md.Activities, m.activities[id])
	}
	return md
}
