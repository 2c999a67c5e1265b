// Package worker contains the credit-gated batch verification runner.
package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"verimail/models"
	"verimail/store"
	"verimail/verifier"
)

const (
	// UnitCost is the credit price of one attempted verification.
	UnitCost = 1

	// pacingDelay throttles the sequential loop. This is abuse-detection
	// hygiene toward mailbox providers, not a performance knob.
	pacingDelay = 100 * time.Millisecond

	// flushEvery bounds how much progress can be lost on a crash.
	flushEvery = 10
)

// VerifyFunc produces a verification result for one address. Injected so the
// runner can be tested without network access.
type VerifyFunc func(ctx context.Context, email string) *verifier.Result

// ProgressFunc receives the rolling tallies as the runner persists them.
type ProgressFunc func(p store.Progress)

// Runner verifies addresses one at a time, charges the workspace ledger,
// reconciles results with the suppression list, and keeps the job record
// current. Jobs for different workspaces may run on concurrent Runners; a
// single job is always strictly sequential.
type Runner struct {
	Verify      VerifyFunc
	Ledger      store.CreditLedger
	Suppression store.SuppressionStore
	Leads       store.LeadStore
	Jobs        store.JobStore
	Logger      *logrus.Logger

	mu      sync.Mutex
	cancels map[uint]context.CancelFunc
}

func NewRunner(verify VerifyFunc, ledger store.CreditLedger, suppression store.SuppressionStore, leads store.LeadStore, jobs store.JobStore, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{
		Verify:      verify,
		Ledger:      ledger,
		Suppression: suppression,
		Leads:       leads,
		Jobs:        jobs,
		Logger:      logger,
		cancels:     make(map[uint]context.CancelFunc),
	}
}

// DedupeEmails lowercases, trims and de-duplicates a batch, preserving
// first-seen order. The ledger charges for unique addresses only.
func DedupeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		unique = append(unique, email)
	}
	return unique
}

// VerifyOne runs the full pipeline for one address: suppression
// short-circuit (charges nothing), credit consumption, verification, result
// persistence, auto-suppression and the optional lead side effect. The
// returned charged flag is false only for the suppressed short-circuit.
func (r *Runner) VerifyOne(ctx context.Context, workspaceID uint, email string, leadID, jobID *uint) (*verifier.Result, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	suppressed, reason, err := r.Suppression.IsSuppressed(ctx, workspaceID, email)
	if err != nil {
		return nil, false, fmt.Errorf("suppression lookup: %w", err)
	}
	if suppressed {
		// The deny list already told us not to contact this address; no
		// network budget is spent and no credit is charged.
		result := &verifier.Result{
			Email:        email,
			Status:       verifier.StatusInvalid,
			Reason:       verifier.ReasonMailboxUnavailable,
			SMTPResponse: fmt.Sprintf("suppressed: %s", reason),
			VerifiedAt:   time.Now().UTC(),
		}
		if err := r.persistResult(ctx, workspaceID, result, leadID, jobID); err != nil {
			return nil, false, err
		}
		return result, false, nil
	}

	action := "verify_email"
	if jobID != nil {
		action = "verify_bulk"
	}
	if _, err := r.Ledger.Consume(ctx, workspaceID, UnitCost, store.ConsumeMemo{
		Action:      action,
		TargetEmail: email,
		JobID:       jobID,
	}); err != nil {
		return nil, false, err
	}

	result := r.Verify(ctx, email)

	if result.Status == verifier.StatusInvalid {
		if err := r.Suppression.Upsert(ctx, workspaceID, email, models.SuppressionInvalid, "verifier"); err != nil {
			r.Logger.WithError(err).WithField("email", email).Warn("auto-suppression failed")
		}
	}

	if err := r.persistResult(ctx, workspaceID, result, leadID, jobID); err != nil {
		return nil, true, err
	}
	return result, true, nil
}

func (r *Runner) persistResult(ctx context.Context, workspaceID uint, result *verifier.Result, leadID, jobID *uint) error {
	record := &models.VerificationRecord{
		WorkspaceID:  workspaceID,
		JobID:        jobID,
		LeadID:       leadID,
		Email:        result.Email,
		Status:       string(result.Status),
		Reason:       string(result.Reason),
		Provider:     result.Provider,
		MXHosts:      strings.Join(result.MXHosts, ","),
		IsDisposable: result.IsDisposable,
		IsRoleBased:  result.IsRoleBased,
		IsCatchAll:   result.IsCatchAll,
		SMTPResponse: result.SMTPResponse,
		DNSScore:     result.DNSScore,
		HasSPF:       result.HasSPF,
		HasDMARC:     result.HasDMARC,
		VerifiedAt:   result.VerifiedAt,
	}
	if err := r.Jobs.SaveResult(ctx, record); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}

	if leadID != nil {
		if err := r.Leads.UpdateEmailStatus(ctx, *leadID, string(result.Status), result.VerifiedAt); err != nil {
			r.Logger.WithError(err).WithField("lead_id", *leadID).Warn("lead status update failed")
		}
	}
	return nil
}

// CreateJob de-duplicates the batch, pre-checks the workspace balance
// against the unique count, and creates the PENDING job record. An
// insufficient balance rejects the whole job; there are no partial jobs.
func (r *Runner) CreateJob(ctx context.Context, workspaceID uint, emails []string) (*models.VerificationJob, error) {
	unique := DedupeEmails(emails)
	if len(unique) == 0 {
		return nil, fmt.Errorf("no valid email addresses in batch")
	}

	needed := len(unique) * UnitCost
	balance, err := r.Ledger.Balance(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("balance check: %w", err)
	}
	if balance < needed {
		return nil, fmt.Errorf("%w: need %d, have %d", store.ErrInsufficientCredits, needed, balance)
	}

	job := &models.VerificationJob{
		WorkspaceID: workspaceID,
		Reference:   uuid.NewString(),
		Status:      models.JobStatusPending,
		TotalCount:  len(unique),
	}
	if err := r.Jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// ProcessJob runs the batch sequentially with pacing. Per-address failures
// are isolated: they count as unknown and the loop continues. Progress is
// persisted every flushEvery addresses and on the final one; the job always
// ends COMPLETED, however many individual addresses errored.
func (r *Runner) ProcessJob(ctx context.Context, jobID, workspaceID uint, emails []string, onProgress ProgressFunc) error {
	unique := DedupeEmails(emails)

	ctx, cancel := context.WithCancel(ctx)
	r.registerCancel(jobID, cancel)
	defer r.unregisterCancel(jobID)

	if err := r.Jobs.MarkProcessing(ctx, jobID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	log := r.Logger.WithFields(logrus.Fields{"job_id": jobID, "workspace_id": workspaceID})
	log.WithField("total", len(unique)).Info("bulk verification started")

	var p store.Progress
	for i, email := range unique {
		// Cancellation is checked once per iteration; the sequential loop
		// makes this cheap and leaves no half-verified address behind.
		if ctx.Err() != nil {
			log.WithField("processed", p.Processed).Warn("bulk verification cancelled")
			break
		}

		if i > 0 {
			time.Sleep(pacingDelay)
		}

		result, charged, err := r.VerifyOne(ctx, workspaceID, email, nil, &jobID)
		p.Processed++
		if err != nil {
			p.Unknown++
			log.WithError(err).WithField("email", email).Warn("verification attempt failed")
		} else {
			tally(&p, result.Status)
		}
		if charged {
			p.CreditsUsed += UnitCost
		}

		if p.Processed%flushEvery == 0 || p.Processed == len(unique) {
			if err := r.Jobs.UpdateProgress(context.WithoutCancel(ctx), jobID, p); err != nil {
				log.WithError(err).Warn("progress flush failed")
			}
			if onProgress != nil {
				onProgress(p)
			}
		}
	}

	if err := r.Jobs.CompleteJob(context.WithoutCancel(ctx), jobID, p, time.Now().UTC()); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if onProgress != nil {
		onProgress(p)
	}
	log.WithFields(logrus.Fields{
		"processed": p.Processed,
		"valid":     p.Valid,
		"invalid":   p.Invalid,
		"risky":     p.Risky,
		"catch_all": p.CatchAll,
		"unknown":   p.Unknown,
	}).Info("bulk verification completed")
	return nil
}

// Cancel requests cancellation of an in-flight job. Returns false when the
// job is not currently running on this Runner.
func (r *Runner) Cancel(jobID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.cancels[jobID]
	if ok {
		cancel()
	}
	return ok
}

func (r *Runner) registerCancel(jobID uint, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[jobID] = cancel
}

func (r *Runner) unregisterCancel(jobID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, jobID)
}

func tally(p *store.Progress, status verifier.Status) {
	switch status {
	case verifier.StatusValid:
		p.Valid++
	case verifier.StatusInvalid:
		p.Invalid++
	case verifier.StatusRisky:
		p.Risky++
	case verifier.StatusCatchAll:
		p.CatchAll++
	default:
		p.Unknown++
	}
}
