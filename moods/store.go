package moods

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements Repository on Postgres.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "public"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) moods() string          { return s.schema + ".moods" }
func (s *Store) activities() string     { return s.schema + ".activities" }
func (s *Store) moodActivities() string { return s.schema + ".mood_activities" }

var _ Repository = (*Store)(nil)

func (s *Store) ListMoods(ctx context.Context, userID uuid.UUID) ([]Mood, error) {
	rows, err := s.pg.Query(ctx,
		`SELECT id, user_id, rating, notes, created_at, updated_at FROM `+s.moods()+`
		 WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scanMood)
	if err != nil {
		return nil, err
	}
	if err := s.attachActivities(ctx, s.pg, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetMood(ctx context.Context, userID uuid.UUID, id int64) (*Mood, error) {
	return s.getMood(ctx, s.pg, userID, id)
}

func (s *Store) CreateMood(ctx context.Context, userID uuid.UUID, in MoodInput) (*Mood, error) {
	var out *Mood
	err := pgx.BeginFunc(ctx, s.pg, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO `+s.moods()+` (user_id, rating, notes) VALUES ($1, $2, $3) RETURNING id`,
			userID, in.Rating, in.Notes,
		).Scan(&id); err != nil {
			return err
		}
		if err := s.linkActivities(ctx, tx, id, in.ActivityIDs); err != nil {
			return err
		}
		m, err := s.getMood(ctx, tx, userID, id)
		out = m
		return err
	})
	return out, err
}

func (s *Store) UpdateMood(ctx context.Context, userID uuid.UUID, id int64, in MoodInput) (*Mood, error) {
	var out *Mood
	err := pgx.BeginFunc(ctx, s.pg, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE `+s.moods()+` SET rating=$3, notes=$4, updated_at=NOW() WHERE id=$1 AND user_id=$2`,
			id, userID, in.Rating, in.Notes)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if in.ActivityIDs != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM `+s.moodActivities()+` WHERE mood_id=$1`, id); err != nil {
				return err
			}
			if err := s.linkActivities(ctx, tx, id, in.ActivityIDs); err != nil {
				return err
			}
		}
		m, err := s.getMood(ctx, tx, userID, id)
		out = m
		return err
	})
	return out, err
}

func (s *Store) DeleteMood(ctx context.Context, userID uuid.UUID, id int64) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.moods()+` WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) RatingsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]int, error) {
	rows, err := s.pg.Query(ctx,
		`SELECT rating FROM `+s.moods()+` WHERE user_id=$1 AND created_at >= $2`, userID, since)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (s *Store) ListActivities(ctx context.Context) ([]Activity, error) {
	rows, err := s.pg.Query(ctx, `SELECT id, name, icon FROM `+s.activities()+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Activity])
}

func (s *Store) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	var a Activity
	err := s.pg.QueryRow(ctx, `SELECT id, name, icon FROM `+s.activities()+` WHERE id=$1`, id).Scan(&a.ID, &a.Name, &a.Icon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateActivity(ctx context.Context, in ActivityInput) (*Activity, error) {
	a := Activity{Name: in.Name, Icon: in.Icon}
	err := s.pg.QueryRow(ctx, `INSERT INTO `+s.activities()+` (name, icon) VALUES ($1, $2) RETURNING id`, in.Name, in.Icon).Scan(&a.ID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) UpdateActivity(ctx context.Context, id int64, in ActivityInput) (*Activity, error) {
	tag, err := s.pg.Exec(ctx, `UPDATE `+s.activities()+` SET name=$2, icon=$3 WHERE id=$1`, id, in.Name, in.Icon)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return &Activity{ID: id, Name: in.Name, Icon: in.Icon}, nil
}

func (s *Store) DeleteActivity(ctx context.Context, id int64) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.activities()+` WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanMood(row pgx.CollectableRow) (Mood, error) {
	var m Mood
	err := row.Scan(&m.ID, &m.UserID, &m.Rating, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	m.Activities = []Activity{}
	return m, err
}

func (s *Store) getMood(ctx context.Context, q querier, userID uuid.UUID, id int64) (*Mood, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, rating, notes, created_at, updated_at FROM `+s.moods()+` WHERE id=$1 AND user_id=$2`,
		id, userID)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMood)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	list := []Mood{m}
	if err := s.attachActivities(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) linkActivities(ctx context.Context, tx pgx.Tx, moodID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO `+s.moodActivities()+` (mood_id, activity_id)
		 SELECT $1, a.id FROM `+s.activities()+` a WHERE a.id = ANY($2::bigint[])
		 ON CONFLICT DO NOTHING`,
		moodID, ids)
	return err
}

func (s *Store) attachActivities(ctx context.Context, q querier, list []Mood) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i, m := range list {
		ids[i] = m.ID
		index[m.ID] = i
	}
	rows, err := q.Query(ctx,
		`SELECT ma.mood_id, a.id, a.name, a.icon FROM `+s.moodActivities()+` ma
		 JOIN `+s.activities()+` a ON a.id = ma.activity_id
		 WHERE ma.mood_id = ANY($1::bigint[]) ORDER BY a.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var moodID int64
		var a Activity
		if err := rows.Scan(&moodID, &a.ID, &a.Name, &a.Icon); err != nil {
			return err
		}
		i := index[moodID]
		list[i].Activities = append(list[i].Activities, a)
	}
	return rows.Err()
}
