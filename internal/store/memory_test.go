package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/testutil"
)

func newTestMemory(opts ...Option) *Memory {
	base := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDs("rec")),
	}
	return NewMemory(append(base, opts...)...)
}

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	created, err := m.CreateRecord(ctx, "hub", record.Properties{"Name": record.NewTitle("Task 1")})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", created.ID)
	assert.Equal(t, testutil.Epoch.Add(time.Second), created.LastModified)

	got, err := m.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	name, ok := got.Properties.PlainText("Name")
	require.True(t, ok)
	assert.Equal(t, "Task 1", name)
}

func TestMemory_GetMissingIsNotFound(t *testing.T) {
	m := newTestMemory()

	_, err := m.GetRecord(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateMergesAndBumpsModified(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	seeded, err := m.Seed("a", "r1", record.Properties{
		"Name":   record.NewTitle("Task 1"),
		"Points": record.NewNumber(5),
	})
	require.NoError(t, err)

	updated, err := m.UpdateRecord(ctx, "r1", record.Properties{"Points": record.NewNumber(7)})
	require.NoError(t, err)

	assert.True(t, updated.LastModified.After(seeded.LastModified))
	assert.Equal(t, record.NewNumber(7), updated.Properties["Points"])
	assert.Equal(t, record.NewTitle("Task 1"), updated.Properties["Name"], "unnamed fields are untouched")
}

func TestMemory_ModifiedStrictlyIncreasesOnStoppedClock(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithClock(fixedClock{testutil.Epoch}))

	rec, err := m.CreateRecord(ctx, "a", record.Properties{})
	require.NoError(t, err)
	again, err := m.UpdateRecord(ctx, rec.ID, record.Properties{"Done": record.Checkbox(true)})
	require.NoError(t, err)

	assert.True(t, again.LastModified.After(rec.LastModified))
}

func TestMemory_QueryPagePaginates(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(WithPageSize(2))
	for _, id := range []string{"r1", "r2", "r3"} {
		_, err := m.Seed("a", id, record.Properties{"Name": record.NewTitle(id)})
		require.NoError(t, err)
	}

	first, err := m.QueryPage(ctx, "a", "")
	require.NoError(t, err)
	require.True(t, first.HasMore)
	require.NotNil(t, first.NextCursor)
	assert.Len(t, first.Records, 2)

	second, err := m.QueryPage(ctx, "a", *first.NextCursor)
	require.NoError(t, err)
	assert.False(t, second.HasMore)
	assert.Nil(t, second.NextCursor)
	require.Len(t, second.Records, 1)
	assert.Equal(t, "r3", second.Records[0].ID)
}

func TestMemory_QueryPageRejectsBadCursor(t *testing.T) {
	m := newTestMemory()

	_, err := m.QueryPage(context.Background(), "a", "abc")
	assert.Error(t, err)
}

func TestMemory_QueryFilteredContainsIgnoresCase(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	_, err := m.Seed("hub", "h1", record.Properties{"Source": record.NewText("ABC-123")})
	require.NoError(t, err)
	_, err = m.Seed("hub", "h2", record.Properties{"Source": record.NewText("xyz")})
	require.NoError(t, err)
	_, err = m.Seed("hub", "h3", record.Properties{})
	require.NoError(t, err)

	got, err := m.QueryFiltered(ctx, "hub", TextFilter{Field: "Source", Contains: "abc"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "h1", got[0].ID)
}

func TestMemory_ArchiveHidesRecord(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	_, err := m.Seed("a", "r1", record.Properties{})
	require.NoError(t, err)

	require.NoError(t, m.Archive("r1"))

	_, err = m.GetRecord(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.UpdateRecord(ctx, "r1", record.Properties{})
	assert.ErrorIs(t, err, ErrNotFound)
	page, err := m.QueryPage(ctx, "a", "")
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, m.Collection("a"))
}

func TestMemory_SeedRejectsDuplicateID(t *testing.T) {
	m := newTestMemory()
	_, err := m.Seed("a", "r1", record.Properties{})
	require.NoError(t, err)

	_, err = m.Seed("a", "r1", record.Properties{})
	assert.Error(t, err)
}

func TestMemory_SchemaEnforcement(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	m.SetSchema("hub", map[string]record.Kind{
		"Name":   record.KindTitle,
		"Source": record.KindText,
	})

	_, err := m.CreateRecord(ctx, "hub", record.Properties{"Name": record.NewTitle("ok")})
	require.NoError(t, err)

	_, err = m.CreateRecord(ctx, "hub", record.Properties{"Points": record.NewNumber(1)})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = m.CreateRecord(ctx, "hub", record.Properties{"Name": record.NewText("wrong kind")})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestMemory_FailOn(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	boom := errors.New("boom")
	_, err := m.Seed("a", "r1", record.Properties{})
	require.NoError(t, err)

	m.FailOn(OpGet, "r1", boom)

	_, err = m.GetRecord(ctx, "r1")
	assert.ErrorIs(t, err, boom)
	_, err = m.QueryPage(ctx, "a", "")
	assert.NoError(t, err, "other ops are unaffected")

	m.FailOn(OpAnything, "", boom)
	_, err = m.QueryPage(ctx, "a", "")
	assert.ErrorIs(t, err, boom)

	m.ClearFailures()
	_, err = m.GetRecord(ctx, "r1")
	assert.NoError(t, err)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	_, err := m.Seed("a", "r1", record.Properties{"Name": record.NewTitle("x")})
	require.NoError(t, err)

	got, err := m.GetRecord(ctx, "r1")
	require.NoError(t, err)
	got.Properties["Name"] = record.NewTitle("mutated")

	again, err := m.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, record.NewTitle("x"), again.Properties["Name"])
}

func TestMemory_Collections(t *testing.T) {
	m := newTestMemory()
	_, _ = m.Seed("b", "r1", record.Properties{})
	_, _ = m.Seed("a", "r2", record.Properties{})

	assert.Equal(t, []string{"a", "b"}, m.Collections())
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("Hello World", "world"))
	assert.True(t, containsFold("abc", ""))
	assert.False(t, containsFold("abc", "abcd"))
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }
