package moods_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/PaulFidika/moodkit/identity"
	migrations "github.com/PaulFidika/moodkit/migrations/postgres"
	"github.com/PaulFidika/moodkit/moods"
)

// testStore migrates a throwaway schema on the database named by
// MOODKIT_TEST_DATABASE_URL and drops it when the test ends.
func testStore(t *testing.T) (*moods.Store, uuid.UUID, uuid.UUID) {
	t.Helper()
	dsn := os.Getenv("MOODKIT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MOODKIT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := "moodkit_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(admin.Close)
	_, err = admin.Exec(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = admin.Exec(context.Background(), `DROP SCHEMA `+schema+` CASCADE`) })

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	require.NoError(t, migrations.Migrate(ctx, pool, log))

	users := identity.NewStore(pool, schema)
	alice := &identity.User{Email: "alice@example.com", Username: "alice"}
	bob := &identity.User{Email: "bob@example.com", Username: "bob"}
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))
	return moods.NewStore(pool, schema), alice.ID, bob.ID
}

func TestStore_MoodActivities(t *testing.T) {
	s, alice, bob := testStore(t)
	ctx := context.Background()

	run, err := s.CreateActivity(ctx, moods.ActivityInput{Name: "Run", Icon: "shoe"})
	require.NoError(t, err)
	read, err := s.CreateActivity(ctx, moods.ActivityInput{Name: "Read"})
	require.NoError(t, err)

	m, err := s.CreateMood(ctx, alice, moods.MoodInput{Rating: 4, Notes: "good", ActivityIDs: []int64{read.ID, run.ID, run.ID, 9999}})
	require.NoError(t, err)
	require.Equal(t, []moods.Activity{*run, *read}, m.Activities)

	// nil keeps the links, an empty list clears them.
	m, err = s.UpdateMood(ctx, alice, m.ID, moods.MoodInput{Rating: 5})
	require.NoError(t, err)
	require.Len(t, m.Activities, 2)
	m, err = s.UpdateMood(ctx, alice, m.ID, moods.MoodInput{Rating: 5, ActivityIDs: []int64{}})
	require.NoError(t, err)
	require.Empty(t, m.Activities)

	_, err = s.UpdateMood(ctx, bob, m.ID, moods.MoodInput{Rating: 1})
	require.ErrorIs(t, err, moods.ErrNotFound)
	_, err = s.GetMood(ctx, bob, m.ID)
	require.ErrorIs(t, err, moods.ErrNotFound)

	second, err := s.CreateMood(ctx, alice, moods.MoodInput{Rating: 2, ActivityIDs: []int64{run.ID}})
	require.NoError(t, err)
	list, err := s.ListMoods(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, []moods.Activity{*run}, list[0].Activities)
	require.Empty(t, list[1].Activities)

	require.NoError(t, s.DeleteActivity(ctx, run.ID))
	got, err := s.GetMood(ctx, alice, second.ID)
	require.NoError(t, err)
	require.Empty(t, got.Activities)

	require.ErrorIs(t, s.DeleteMood(ctx, bob, second.ID), moods.ErrNotFound)
	require.NoError(t, s.DeleteMood(ctx, alice, second.ID))
	_, err = s.GetMood(ctx, alice, second.ID)
	require.ErrorIs(t, err, moods.ErrNotFound)
}

func TestStore_RatingsSince(t *testing.T) {
	s, alice, bob := testStore(t)
	ctx := context.Background()

	for _, r := range []int{5, 3} {
		_, err := s.CreateMood(ctx, alice, moods.MoodInput{Rating: r})
		require.NoError(t, err)
	}
	_, err := s.CreateMood(ctx, bob, moods.MoodInput{Rating: 1})
	require.NoError(t, err)

	ratings, err := s.RatingsSince(ctx, alice, time.Now().Add(-moods.AnalyticsWindow))
	require.NoError(t, err)
	require.ElementsMatch(t, []int{5, 3}, ratings)
	require.InDelta(t, 4.0, moods.Summarize(ratings).AverageMood, 1e-9)

	ratings, err = s.RatingsSince(ctx, alice, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, ratings)
}

func TestStore_Activities(t *testing.T) {
	s, _, _ := testStore(t)
	ctx := context.Background()

	a, err := s.CreateActivity(ctx, moods.ActivityInput{Name: "Yoga", Icon: "lotus"})
	require.NoError(t, err)
	a, err = s.UpdateActivity(ctx, a.ID, moods.ActivityInput{Name: "Hot yoga"})
	require.NoError(t, err)
	require.Equal(t, "Hot yoga", a.Name)
	require.Empty(t, a.Icon)

	list, err := s.ListActivities(ctx)
	require.NoError(t, err)
	require.Equal(t, []moods.Activity{*a}, list)

	_, err = s.UpdateActivity(ctx, a.ID+1, moods.ActivityInput{Name: "x"})
	require.ErrorIs(t, err, moods.ErrNotFound)
	require.NoError(t, s.DeleteActivity(ctx, a.ID))
	_, err = s.GetActivity(ctx, a.ID)
	require.ErrorIs(t, err, moods.ErrNotFound)
	require.ErrorIs(t, s.DeleteActivity(ctx, a.ID), moods.ErrNotFound)
}
