package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/store"
	"github.com/iksnae/claude-memory/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProjectStore(t *testing.T, root string) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(root, ".claude", "memory.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIngestHookEnvelope(t *testing.T) {
	t.Setenv(internal.ProjectEnvVar, "")
	root := testutil.CreateProjectDir(t)
	sub := filepath.Join(root, "cmd")

	path := testutil.NewTranscript("transcript-id", sub).
		User("fix bug").
		Assistant("fixed").
		Write(t, testutil.CreateTempDir(t))

	ing := New(WithConfig(internal.DefaultConfig()))
	res, err := ing.Ingest(context.Background(), testutil.HookEnvelope(t, "s1", path, sub))
	require.NoError(t, err)

	assert.Equal(t, "s1", res.SessionID, "envelope id wins")
	assert.Equal(t, 2, res.TurnCount)
	assert.True(t, res.Created)
	assert.Equal(t, root, res.ProjectRoot)
	assert.Equal(t, filepath.Join(root, ".claude", "memory.db"), res.StorePath)

	got, err := openProjectStore(t, root).GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "fix bug", got.Title)
	assert.Equal(t, root, got.ProjectPath)
}

func TestIngestUsesSessionProjectOverEnv(t *testing.T) {
	other := testutil.CreateProjectDir(t)
	t.Setenv(internal.ProjectEnvVar, other)
	root := testutil.CreateProjectDir(t)

	path := testutil.NewTranscript("s1", root).User("tune the cache").Assistant("done").Write(t, root)
	res, err := New(WithConfig(internal.DefaultConfig())).Ingest(context.Background(), testutil.HookEnvelope(t, "s1", path, root))
	require.NoError(t, err)
	assert.Equal(t, root, res.ProjectRoot)

	got, err := openProjectStore(t, root).GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, root, got.ProjectPath)
	assert.NoFileExists(t, filepath.Join(other, ".claude", "memory.db"))
}

func TestIngestFallsBackToEnvWithoutCwd(t *testing.T) {
	root := testutil.CreateProjectDir(t)
	t.Setenv(internal.ProjectEnvVar, root)

	payload := []byte(`{"format":"copilot","session_id":"cp-2","turns":[{"role":"user","content":"hello"}]}`)
	res, err := New(WithConfig(internal.DefaultConfig())).Ingest(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, root, res.ProjectRoot)
}

func TestIngestIsIdempotent(t *testing.T) {
	t.Setenv(internal.ProjectEnvVar, "")
	root := testutil.CreateProjectDir(t)
	path := testutil.NewTranscript("s1", root).User("refactor parser").Assistant("ok").Write(t, root)
	payload := testutil.HookEnvelope(t, "s1", path, root)

	ing := New(WithConfig(internal.DefaultConfig()))
	first, err := ing.Ingest(context.Background(), payload)
	require.NoError(t, err)
	second, err := ing.Ingest(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.False(t, second.Created)

	st, err := openProjectStore(t, root).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Sessions)
	assert.True(t, st.IndexConsistent())
}

func TestIngestTaggedCopilot(t *testing.T) {
	t.Setenv(internal.ProjectEnvVar, "")
	root := testutil.CreateProjectDir(t)
	captured := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	payload := testutil.CopilotPayload(t, "cp-1", root, captured, "how do lifetimes work", "like this")

	res, err := New(WithConfig(internal.DefaultConfig())).Ingest(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "cp-1", res.SessionID)

	got, err := openProjectStore(t, root).GetSession(context.Background(), "cp-1")
	require.NoError(t, err)
	assert.Equal(t, internal.FormatCopilot, got.SourceFormat)
	assert.Equal(t, captured, got.StartedAt)
}

func TestIngestGeneratesMissingID(t *testing.T) {
	t.Setenv(internal.ProjectEnvVar, "")
	root := testutil.CreateProjectDir(t)
	payload := []byte(`{"format":"copilot","cwd":"` + root + `","turns":[{"role":"user","content":"hello"}]}`)

	ing := New(WithConfig(internal.DefaultConfig()))
	ing.newID = func() string { return "generated" }
	res, err := ing.Ingest(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "generated", res.SessionID)
}

func TestIngestErrors(t *testing.T) {
	t.Setenv(internal.ProjectEnvVar, "")
	root := testutil.CreateProjectDir(t)
	emptyPath := testutil.NewTranscript("e", root).Assistant("nobody asked").Write(t, root)

	tests := []struct {
		name    string
		payload []byte
		check   func(t *testing.T, err error)
	}{
		{
			name:    "invalid envelope json",
			payload: []byte(`{"session_id":`),
			check: func(t *testing.T, err error) {
				var pe *internal.ParseError
				assert.ErrorAs(t, err, &pe)
			},
		},
		{
			name:    "unknown tag",
			payload: []byte(`{"format":"gemini","turns":[]}`),
			check: func(t *testing.T, err error) {
				var ue *internal.UnknownFormatError
				assert.ErrorAs(t, err, &ue)
			},
		},
		{
			name:    "missing transcript path",
			payload: []byte(`{"session_id":"x","cwd":"` + root + `"}`),
			check: func(t *testing.T, err error) {
				var pe *internal.ParseError
				assert.ErrorAs(t, err, &pe)
			},
		},
		{
			name:    "transcript file missing",
			payload: testutil.HookEnvelope(t, "x", filepath.Join(root, "nope.jsonl"), root),
			check: func(t *testing.T, err error) {
				var pe *internal.ParseError
				assert.ErrorAs(t, err, &pe)
			},
		},
		{
			name:    "no user turns",
			payload: testutil.HookEnvelope(t, "e", emptyPath, root),
			check: func(t *testing.T, err error) {
				var ee *internal.EmptySessionError
				assert.ErrorAs(t, err, &ee)
			},
		},
	}

	ing := New(WithConfig(internal.DefaultConfig()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ing.Ingest(context.Background(), tt.payload)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	st, err := openProjectStore(t, root).Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Sessions, "failed ingests leave the store untouched")
}
