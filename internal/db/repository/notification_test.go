package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

func TestNotificationRepo_CreateInApp(t *testing.T) {
	f := setupFixture(t)
	alice, _ := f.pair(t)

	n, err := f.notes.Create(context.Background(), &domain.Notification{
		Type: domain.NotificationInApp, SendToID: alice.ID, Content: "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "hello", n.Content)
	assert.Nil(t, n.Email)
	assert.False(t, n.IsRead)
}

func TestNotificationRepo_CreateEmailRoundTrip(t *testing.T) {
	f := setupFixture(t)
	alice, _ := f.pair(t)
	content := &domain.EmailContent{Subject: "S", Body: "B", HTML: "<p>B</p>"}

	n, err := f.notes.Create(context.Background(), &domain.Notification{
		Type: domain.NotificationEmail, SendToID: alice.ID, Email: content,
	})
	require.NoError(t, err)
	require.NotNil(t, n.Email)
	assert.Equal(t, *content, *n.Email)
	assert.Empty(t, n.Content)
}

func TestNotificationRepo_EmailWithoutContent(t *testing.T) {
	f := setupFixture(t)
	alice, _ := f.pair(t)
	_, err := f.notes.Create(context.Background(), &domain.Notification{
		Type: domain.NotificationEmail, SendToID: alice.ID,
	})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNotificationRepo_ListMarkCount(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, bob := f.pair(t)

	var ids []string
	for _, msg := range []string{"one", "two", "three"} {
		n, err := f.notes.Create(ctx, &domain.Notification{Type: domain.NotificationInApp, SendToID: alice.ID, Content: msg})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	other, err := f.notes.Create(ctx, &domain.Notification{Type: domain.NotificationInApp, SendToID: bob.ID, Content: "bob's"})
	require.NoError(t, err)
	_, err = f.notes.Create(ctx, &domain.Notification{
		Type: domain.NotificationEmail, SendToID: alice.ID, Email: &domain.EmailContent{Subject: "s", Body: "b", HTML: "h"},
	})
	require.NoError(t, err)

	list, err := f.notes.ListForUser(ctx, alice.ID, domain.NotificationInApp)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "three", list[0].Content)

	count, err := f.notes.CountUnread(ctx, alice.ID, domain.NotificationInApp)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Bob's id is ignored, and re-marking is a no-op.
	n, err := f.notes.MarkRead(ctx, alice.ID, append(ids[:2:2], other.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = f.notes.MarkRead(ctx, alice.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = f.notes.CountUnread(ctx, alice.ID, domain.NotificationInApp)
	require.NoError(t, err)
	assert.Zero(t, count)

	bobCount, err := f.notes.CountUnread(ctx, bob.ID, domain.NotificationInApp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobCount)
}

func TestNotificationRepo_MarkReadEmpty(t *testing.T) {
	f := setupFixture(t)
	n, err := f.notes.MarkRead(context.Background(), "anyone", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationRepo_DeleteReadBefore(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, _ := f.pair(t)

	read, err := f.notes.Create(ctx, &domain.Notification{Type: domain.NotificationInApp, SendToID: alice.ID, Content: "read"})
	require.NoError(t, err)
	unread, err := f.notes.Create(ctx, &domain.Notification{Type: domain.NotificationInApp, SendToID: alice.ID, Content: "unread"})
	require.NoError(t, err)
	_, err = f.notes.MarkRead(ctx, alice.ID, []string{read.ID})
	require.NoError(t, err)

	purged, err := f.notes.DeleteReadBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = f.notes.GetByID(ctx, read.ID)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
	_, err = f.notes.GetByID(ctx, unread.ID)
	assert.NoError(t, err)
}
