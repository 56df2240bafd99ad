package transcript

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbhq/notabene/internal/testutil"
)

func TestAppend_Validation(t *testing.T) {
	store := New(nil) // validation happens before the db is touched

	tests := []struct {
		name string
		msg  Message
	}{
		{name: "missing chat id", msg: Message{TenantID: "tenant-a", Role: RoleUser, Content: "hi"}},
		{name: "missing tenant", msg: Message{ChatID: uuid.New(), Role: RoleUser, Content: "hi"}},
		{name: "invalid role", msg: Message{ChatID: uuid.New(), TenantID: "tenant-a", Role: "narrator", Content: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Append(context.Background(), tt.msg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestHistory_RequiresTenant(t *testing.T) {
	store := New(nil)
	if _, err := store.History(context.Background(), uuid.New(), ""); err == nil {
		t.Error("expected error for missing tenant")
	}
}

func TestTranscript_AppendAndHistory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	store := New(db.Pool)
	ctx := context.Background()

	chatID := uuid.New()
	require.NoError(t, store.Append(ctx, Message{
		ChatID: chatID, TenantID: "tenant-a", Role: RoleUser, Content: "what did I note about tomatoes?",
	}))
	require.NoError(t, store.Append(ctx, Message{
		ChatID: chatID, TenantID: "tenant-a", Role: RoleAssistant,
		Content: "Plant them in May.",
		Sources: []Source{{Source: "garden.md", Relevance: 0.88}},
	}))

	history, err := store.History(ctx, chatID, "tenant-a")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, RoleUser, history[0].Role)
	assert.Empty(t, history[0].Sources)
	assert.Less(t, history[0].Seq, history[1].Seq, "messages come back in append order")

	assistant := history[1]
	assert.Equal(t, RoleAssistant, assistant.Role)
	require.Len(t, assistant.Sources, 1)
	assert.Equal(t, "garden.md", assistant.Sources[0].Source)
	assert.InDelta(t, 0.88, assistant.Sources[0].Relevance, 1e-9)
	assert.False(t, assistant.CreatedAt.IsZero())
}

func TestTranscript_TenantIsolation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	store := New(db.Pool)
	ctx := context.Background()

	chatID := uuid.New()
	require.NoError(t, store.Append(ctx, Message{
		ChatID: chatID, TenantID: "tenant-a", Role: RoleUser, Content: "private",
	}))

	history, err := store.History(ctx, chatID, "tenant-b")
	require.NoError(t, err)
	assert.Empty(t, history, "tenant-b must not read tenant-a transcripts")
}

func TestTranscript_UnknownChatEmpty_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	store := New(db.Pool)

	history, err := store.History(context.Background(), uuid.New(), "tenant-a")
	require.NoError(t, err)
	assert.Empty(t, history)
}
