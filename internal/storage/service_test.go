package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"interview-coach/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ArchiveAndLoad(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "results"))
	store.now = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }

	score := 82.5
	interview := &api.Interview{
		ID:           "iv-1",
		Status:       api.StatusCompleted,
		StartedAt:    api.Timestamp{Time: time.Date(2025, 2, 3, 3, 30, 0, 0, time.UTC)},
		QA:           []api.QuestionAnswer{{QuestionText: "Q1", AnswerText: "A1", AIScore: &score}},
		OverallScore: &score,
	}
	feedback := &api.FeedbackSummary{OverallScore: score, Strengths: []string{"clear"}}

	require.NoError(t, store.Archive(interview, feedback))

	loaded, err := store.LoadResult("iv-1")
	require.NoError(t, err)
	assert.Equal(t, "iv-1", loaded.InterviewID)
	assert.Equal(t, "2025-02-03T04:05:06Z", loaded.Timestamp)
	assert.Equal(t, interview.StartedAt.Time, loaded.Interview.StartedAt.Time)
	require.Len(t, loaded.Interview.QA, 1)
	assert.Equal(t, score, *loaded.Interview.QA[0].AIScore)
	assert.Equal(t, []string{"clear"}, loaded.Feedback.Strengths)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, "interview_iv-1.json", entries[0].Name())
}

func TestStore_ListResults(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	ids, err := NewStore(filepath.Join(dir, "missing")).ListResults()
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []string{"b", "a"} {
		require.NoError(t, store.Archive(&api.Interview{ID: id}, nil))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "interview_dir.json"), 0755))

	ids, err = store.ListResults()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStore_Errors(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.LoadResult("absent")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		_, err := store.LoadResult(id)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
	assert.ErrorIs(t, store.Archive(nil, nil), ErrInvalidID)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "interview_bad.json"), []byte("{"), 0644))
	_, err = store.LoadResult("bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewStore_DefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir, NewStore("").Dir())
}
