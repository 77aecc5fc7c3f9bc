package lumina

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/ai/mock"
	"github.com/poiesic/lumina/chat"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/queue"
)

func newMockProvider() *mock.MockProvider {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 16
	return mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator("Five ", "days."))
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithAIProvider(newMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Documents())
		assert.NotNil(t, db.Chunks())
		assert.NotNil(t, db.Chats())
		assert.NotNil(t, db.Memberships())
		assert.NotNil(t, db.Audit())
		assert.Zero(t, db.Index().Len())
	})

	t.Run("default provider", func(t *testing.T) {
		db, err := NewDatabase(t.TempDir())
		require.NoError(t, err)
		assert.NoError(t, db.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile, WithAIProvider(newMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	provider := newMockProvider()
	db, err := NewDatabase(t.TempDir(), WithAIProvider(provider))
	require.NoError(t, err)

	assert.NoError(t, db.Close())
	assert.True(t, provider.Closed())
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase("", InMemory(), WithAIProvider(newMockProvider()))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.NewWorker()
	require.NoError(t, err)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)

	streamer, err := db.NewStreamer(searcher)
	require.NoError(t, err)

	jobs, err := queue.NewMemoryQueue()
	require.NoError(t, err)
	defer jobs.Close()

	_, err = db.NewServer(jobs, streamer)
	require.NoError(t, err)

	_, err = db.NewServer(nil, streamer)
	assert.Error(t, err)

	assert.NotNil(t, db.NewReindexer(nil, nil, nil))
}

// TestDatabase_EndToEnd ingests a document, answers a question about it and
// rebuilds the index from the stored chunks.
func TestDatabase_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	provider := newMockProvider()

	db, err := NewDatabase(filepath.Join(dir, "db"),
		WithAIProvider(provider),
		WithVectorStorePath(filepath.Join(dir, "vectors.json")),
	)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Memberships().AddMembership(ctx, &core.Membership{
		TenantID: "org-1", UserID: "u-1", Role: core.MemberRoleAdmin,
	}))

	doc, err := db.Documents().CreateDocument(ctx, &core.Document{
		ID: core.NewID(), TenantID: "org-1", Title: "refunds.txt", MimeType: "text/plain",
	})
	require.NoError(t, err)

	text := strings.Repeat("Refunds are processed within five business days. ", 40)
	worker, err := db.NewWorker()
	require.NoError(t, err)
	require.NoError(t, worker.Process(ctx, queue.NewIngestionJob("org-1", doc.ID, []byte(text))))

	stored, err := db.Documents().GetDocument(ctx, "org-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusActive, stored.Status)

	chunks, err := db.Chunks().ListChunksByDocument(ctx, "org-1", doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, len(chunks), db.Index().Len())

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	found, err := searcher.FindRelevant(ctx, "org-1", chunks[0].Content, 3)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, doc.ID, found[0].DocumentID)

	none, err := searcher.FindRelevant(ctx, "org-2", chunks[0].Content, 3)
	require.NoError(t, err)
	assert.Empty(t, none)

	streamer, err := db.NewStreamer(searcher)
	require.NoError(t, err)
	session, err := db.Chats().CreateSession(ctx, &core.ChatSession{TenantID: "org-1", UserID: "u-1"})
	require.NoError(t, err)

	var answer strings.Builder
	msg, err := streamer.Stream(ctx, chat.Request{
		TenantID:  "org-1",
		UserID:    "u-1",
		SessionID: session.ID,
		Message:   "How long do refunds take?",
	}, chat.SinkFunc(func(f string) error {
		answer.WriteString(f)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "Five days.", answer.String())
	assert.Equal(t, "Five days.", msg.Content)

	calls := provider.GetMockGenerator().Calls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].Context)

	result, err := db.NewReindexer(nil, nil, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), result.Indexed)
	assert.Equal(t, len(chunks), db.Index().Len())
}
