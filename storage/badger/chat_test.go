package badger

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

func TestSessionLifecycle(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	session, err := repos.Chats.CreateSession(ctx, &core.ChatSession{TenantID: "org-1", UserID: "u-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, core.DefaultSessionTitle, session.Title)

	_, err = repos.Chats.GetSession(ctx, "org-2", session.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repos.Chats.AppendMessage(ctx, &core.Message{
		SessionID: session.ID,
		Role:      core.RoleUser,
		Content:   "What is the   refund policy?",
	})
	require.NoError(t, err)
	_, err = repos.Chats.AppendMessage(ctx, &core.Message{
		SessionID: session.ID,
		Role:      core.RoleAssistant,
		Content:   "Refunds are issued within 30 days.",
	})
	require.NoError(t, err)
	_, err = repos.Chats.AppendMessage(ctx, &core.Message{
		SessionID: session.ID,
		Role:      core.RoleUser,
		Content:   "And exchanges?",
	})
	require.NoError(t, err)

	got, err := repos.Chats.GetSession(ctx, "org-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, "What is the refund policy?", got.Title)
	assert.Equal(t, 3, got.MessageCount)
	assert.True(t, !got.UpdatedAt.Before(got.CreatedAt))

	msgs, err := repos.Chats.GetMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "And exchanges?", msgs[2].Content)
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	repos := newTestRepos(t)
	_, err := repos.Chats.AppendMessage(context.Background(), &core.Message{
		SessionID: "missing",
		Role:      core.RoleUser,
		Content:   "hi",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetRecentMessages(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	session, err := repos.Chats.CreateSession(ctx, &core.ChatSession{TenantID: "org-1", UserID: "u-1"})
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		_, err := repos.Chats.AppendMessage(ctx, &core.Message{
			SessionID: session.ID,
			Role:      core.RoleUser,
			Content:   fmt.Sprintf("message %02d", i),
		})
		require.NoError(t, err)
	}

	recent, err := repos.Chats.GetRecentMessages(ctx, session.ID, 20)
	require.NoError(t, err)
	require.Len(t, recent, 20)
	assert.Equal(t, "message 05", recent[0].Content)
	assert.Equal(t, "message 24", recent[19].Content)

	_, err = repos.Chats.GetRecentMessages(ctx, session.ID, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestListSessions(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	first, err := repos.Chats.CreateSession(ctx, &core.ChatSession{TenantID: "org-1", UserID: "u-1"})
	require.NoError(t, err)
	second, err := repos.Chats.CreateSession(ctx, &core.ChatSession{TenantID: "org-1", UserID: "u-1"})
	require.NoError(t, err)
	_, err = repos.Chats.CreateSession(ctx, &core.ChatSession{TenantID: "org-1", UserID: "u-2"})
	require.NoError(t, err)

	// Touch the first session so it becomes the most recent.
	_, err = repos.Chats.AppendMessage(ctx, &core.Message{SessionID: first.ID, Role: core.RoleUser, Content: "bump"})
	require.NoError(t, err)

	sessions, err := repos.Chats.ListSessions(ctx, "org-1", "u-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestLongFirstMessageTitle(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	session, err := repos.Chats.CreateSession(ctx, &core.ChatSession{TenantID: "org-1", UserID: "u-1"})
	require.NoError(t, err)
	_, err = repos.Chats.AppendMessage(ctx, &core.Message{
		SessionID: session.ID,
		Role:      core.RoleUser,
		Content:   strings.Repeat("x", 200),
	})
	require.NoError(t, err)

	got, err := repos.Chats.GetSession(ctx, "org-1", session.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got.Title, "..."))
	assert.Less(t, len(got.Title), 200)
}
