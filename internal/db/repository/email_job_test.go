package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

func setupEmailJob(t *testing.T, f *fixture) domain.EmailJob {
	t.Helper()
	alice, _ := f.pair(t)
	n, err := f.notes.Create(context.Background(), &domain.Notification{
		Type: domain.NotificationEmail, SendToID: alice.ID,
		Email: &domain.EmailContent{Subject: "s", Body: "b", HTML: "h"},
	})
	require.NoError(t, err)
	return domain.EmailJob{NotificationID: n.ID, Recipient: alice.Email}
}

func TestEmailJobRepo_ClaimLifecycle(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	job := setupEmailJob(t, f)
	now := time.Now()

	rec, err := f.jobs.Insert(ctx, job, now)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailJobQueued, rec.Status)
	assert.Zero(t, rec.Attempts)

	claimed, err := f.jobs.ClaimDue(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, rec.ID, claimed.ID)
	assert.Equal(t, domain.EmailJobRunning, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	assert.Equal(t, job.Recipient, claimed.Recipient)

	// Nothing else is due while the job is leased.
	again, err := f.jobs.ClaimDue(ctx, now, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, again)

	require.NoError(t, f.jobs.MarkDone(ctx, rec.ID))
	done, err := f.jobs.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailJobDone, done.Status)
}

func TestEmailJobRepo_NotDueYet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	now := time.Now()
	_, err := f.jobs.Insert(ctx, setupEmailJob(t, f), now.Add(time.Hour))
	require.NoError(t, err)

	claimed, err := f.jobs.ClaimDue(ctx, now, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestEmailJobRepo_RescheduleAndBury(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	now := time.Now()
	rec, err := f.jobs.Insert(ctx, setupEmailJob(t, f), now)
	require.NoError(t, err)

	_, err = f.jobs.ClaimDue(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.jobs.Reschedule(ctx, rec.ID, now.Add(time.Second), "smtp down"))

	got, err := f.jobs.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailJobQueued, got.Status)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "smtp down", *got.LastError)
	assert.Equal(t, now.Add(time.Second).UnixMilli(), got.NextAttemptAt.UnixMilli())

	claimed, err := f.jobs.ClaimDue(ctx, now.Add(2*time.Second), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 2, claimed.Attempts)

	require.NoError(t, f.jobs.Bury(ctx, rec.ID, "gave up"))
	dead, err := f.jobs.CountByStatus(ctx, domain.EmailJobDead)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)
}

func TestEmailJobRepo_RequeueExpired(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	now := time.Now()
	rec, err := f.jobs.Insert(ctx, setupEmailJob(t, f), now)
	require.NoError(t, err)
	_, err = f.jobs.ClaimDue(ctx, now, time.Second)
	require.NoError(t, err)

	n, err := f.jobs.RequeueExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "lease still valid")

	n, err = f.jobs.RequeueExpired(ctx, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.jobs.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailJobQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)
}

func TestEmailJobRepo_SettleMissing(t *testing.T) {
	f := setupFixture(t)
	err := f.jobs.MarkDone(context.Background(), "missing")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
