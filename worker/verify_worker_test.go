package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verimail/models"
	"verimail/store"
	"verimail/verifier"
)

const testWorkspace uint = 7

// statusByEmail builds a VerifyFunc that classifies by lookup, defaulting to
// valid. No network, no pacing concerns.
func statusByEmail(statuses map[string]verifier.Status) VerifyFunc {
	return func(_ context.Context, email string) *verifier.Result {
		status, ok := statuses[email]
		if !ok {
			status = verifier.StatusValid
		}
		reason := verifier.ReasonValid
		switch status {
		case verifier.StatusInvalid:
			reason = verifier.ReasonMailboxUnavailable
		case verifier.StatusRisky:
			reason = verifier.ReasonRateLimited
		case verifier.StatusCatchAll:
			reason = verifier.ReasonCatchAllDetected
		case verifier.StatusUnknown:
			reason = verifier.ReasonTimeout
		}
		return &verifier.Result{
			Email:      email,
			Status:     status,
			Reason:     reason,
			VerifiedAt: time.Now().UTC(),
		}
	}
}

func newTestRunner(verify VerifyFunc, m *store.MemoryStore) *Runner {
	return NewRunner(verify, m, m, m, m, nil)
}

func emailBatch(n int) []string {
	emails := make([]string, n)
	for i := range emails {
		emails[i] = fmt.Sprintf("user%d@example.com", i)
	}
	return emails
}

func TestDedupeEmails(t *testing.T) {
	unique := DedupeEmails([]string{
		"A@x.com", " b@x.com ", "a@x.com", "", "B@X.COM", "c@x.com",
	})
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, unique)
}

func TestCreateJobChargesUniqueAddressesOnly(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 5)
	r := newTestRunner(statusByEmail(nil), m)

	job, err := r.CreateJob(context.Background(), testWorkspace, []string{"A@x.com", "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, job.TotalCount)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.NotEmpty(t, job.Reference)

	require.NoError(t, r.ProcessJob(context.Background(), job.ID, testWorkspace, []string{"A@x.com", "a@x.com"}, nil))

	balance, err := m.Balance(context.Background(), testWorkspace)
	require.NoError(t, err)
	assert.Equal(t, 4, balance, "the duplicate address is free")
	assert.Len(t, m.Usages(), 1)
	assert.Equal(t, "verify_bulk", m.Usages()[0].Action)
}

func TestCreateJobInsufficientCredits(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 1)
	r := newTestRunner(statusByEmail(nil), m)

	job, err := r.CreateJob(context.Background(), testWorkspace, emailBatch(3))

	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInsufficientCredits))
	assert.Contains(t, err.Error(), "need 3, have 1", "the shortfall must be named")
	assert.Nil(t, job)

	_, err = m.GetJob(context.Background(), testWorkspace, 1)
	assert.Error(t, err, "a rejected batch creates no job")
}

func TestProcessJobTallies(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 100)
	statuses := map[string]verifier.Status{
		"user0@example.com": verifier.StatusInvalid,
		"user1@example.com": verifier.StatusRisky,
		"user2@example.com": verifier.StatusCatchAll,
		"user3@example.com": verifier.StatusUnknown,
	}
	r := newTestRunner(statusByEmail(statuses), m)

	emails := emailBatch(6)
	job, err := r.CreateJob(context.Background(), testWorkspace, emails)
	require.NoError(t, err)
	require.NoError(t, r.ProcessJob(context.Background(), job.ID, testWorkspace, emails, nil))

	got, err := m.GetJob(context.Background(), testWorkspace, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 6, got.ProcessedCount)
	assert.Equal(t, 2, got.ValidCount)
	assert.Equal(t, 1, got.InvalidCount)
	assert.Equal(t, 1, got.RiskyCount)
	assert.Equal(t, 1, got.CatchAllCount)
	assert.Equal(t, 1, got.UnknownCount)
	assert.Equal(t, 6, got.CreditsUsed)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	sum := got.ValidCount + got.InvalidCount + got.RiskyCount + got.CatchAllCount + got.UnknownCount
	assert.Equal(t, got.ProcessedCount, sum)

	results, err := m.ListResults(context.Background(), testWorkspace, job.ID, 100, 0)
	require.NoError(t, err)
	assert.Len(t, results, 6)
}

func TestProcessJobFlushCadence(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 100)
	r := newTestRunner(statusByEmail(nil), m)

	emails := emailBatch(25)
	job, err := r.CreateJob(context.Background(), testWorkspace, emails)
	require.NoError(t, err)

	var flushes []int
	onProgress := func(p store.Progress) {
		flushes = append(flushes, p.Processed)
	}
	require.NoError(t, r.ProcessJob(context.Background(), job.ID, testWorkspace, emails, onProgress))

	// Persisted every 10, on the final address, and once more on completion.
	assert.Equal(t, []int{10, 20, 25, 25}, flushes)
}

// failingJobs errors SaveResult for one address to prove per-address failures
// are isolated.
type failingJobs struct {
	*store.MemoryStore
	failEmail string
}

func (f *failingJobs) SaveResult(ctx context.Context, record *models.VerificationRecord) error {
	if record.Email == f.failEmail {
		return errors.New("disk on fire")
	}
	return f.MemoryStore.SaveResult(ctx, record)
}

func TestProcessJobIsolatesAddressFailures(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 100)
	jobs := &failingJobs{MemoryStore: m, failEmail: "user2@example.com"}
	r := NewRunner(statusByEmail(nil), m, m, m, jobs, nil)

	emails := emailBatch(5)
	job, err := r.CreateJob(context.Background(), testWorkspace, emails)
	require.NoError(t, err)
	require.NoError(t, r.ProcessJob(context.Background(), job.ID, testWorkspace, emails, nil))

	got, err := m.GetJob(context.Background(), testWorkspace, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 5, got.ProcessedCount, "the loop continues past a failed address")
	assert.Equal(t, 4, got.ValidCount)
	assert.Equal(t, 1, got.UnknownCount, "a failed attempt counts as unknown")
	assert.Equal(t, 5, got.CreditsUsed, "the credit was spent before the failure")
}

func TestProcessJobCancellation(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 100)

	var r *Runner
	var jobID uint
	processed := 0
	verify := func(ctx context.Context, email string) *verifier.Result {
		processed++
		if processed == 3 {
			require.True(t, r.Cancel(jobID))
		}
		return &verifier.Result{
			Email: email, Status: verifier.StatusValid, Reason: verifier.ReasonValid,
			VerifiedAt: time.Now().UTC(),
		}
	}
	r = newTestRunner(verify, m)

	emails := emailBatch(10)
	job, err := r.CreateJob(context.Background(), testWorkspace, emails)
	require.NoError(t, err)
	jobID = job.ID

	require.NoError(t, r.ProcessJob(context.Background(), jobID, testWorkspace, emails, nil))

	got, err := m.GetJob(context.Background(), testWorkspace, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status, "a cancelled job still closes with its partial tallies")
	assert.Equal(t, 3, got.ProcessedCount)
	assert.Equal(t, 3, got.CreditsUsed)

	assert.False(t, r.Cancel(jobID), "a finished job is no longer cancellable")
}

func TestVerifyOneSuppressedShortCircuit(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 10)
	require.NoError(t, m.Upsert(context.Background(), testWorkspace, "blocked@example.com", models.SuppressionManual, "manual"))

	verifyCalled := false
	verify := func(_ context.Context, email string) *verifier.Result {
		verifyCalled = true
		return &verifier.Result{Email: email, Status: verifier.StatusValid, Reason: verifier.ReasonValid}
	}
	r := newTestRunner(verify, m)

	result, charged, err := r.VerifyOne(context.Background(), testWorkspace, "Blocked@Example.com", nil, nil)
	require.NoError(t, err)

	assert.False(t, charged)
	assert.False(t, verifyCalled, "suppressed addresses never reach the verifier")
	assert.Equal(t, verifier.StatusInvalid, result.Status)
	assert.Equal(t, verifier.ReasonMailboxUnavailable, result.Reason)
	assert.Equal(t, "suppressed: MANUAL", result.SMTPResponse)

	balance, err := m.Balance(context.Background(), testWorkspace)
	require.NoError(t, err)
	assert.Equal(t, 10, balance, "the short-circuit is free")
	assert.Empty(t, m.Usages())
}

func TestVerifyOneAutoSuppressesInvalid(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 10)
	statuses := map[string]verifier.Status{"gone@example.com": verifier.StatusInvalid}
	r := newTestRunner(statusByEmail(statuses), m)

	_, charged, err := r.VerifyOne(context.Background(), testWorkspace, "gone@example.com", nil, nil)
	require.NoError(t, err)
	assert.True(t, charged)

	suppressed, reason, err := m.IsSuppressed(context.Background(), testWorkspace, "gone@example.com")
	require.NoError(t, err)
	assert.True(t, suppressed)
	assert.Equal(t, models.SuppressionInvalid, reason)
}

func TestVerifyOneUpdatesLead(t *testing.T) {
	m := store.NewMemoryStore()
	m.SetBalance(testWorkspace, 10)
	lead := &models.Lead{EmailStatus: "unverified"}
	lead.ID = 42
	m.AddLead(lead)
	r := newTestRunner(statusByEmail(nil), m)

	leadID := uint(42)
	_, _, err := r.VerifyOne(context.Background(), testWorkspace, "person@example.com", &leadID, nil)
	require.NoError(t, err)

	assert.Equal(t, "valid", lead.EmailStatus)
	assert.NotNil(t, lead.EmailVerifiedAt)
}
