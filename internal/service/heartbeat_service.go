package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"mubot/internal/guardrail"
	"mubot/internal/models"
	"mubot/internal/store"
)

// Sender delivers one follow-up for an entry. Implementations live outside
// the core (SMTP, API client); the core never builds message content.
type Sender interface {
	Send(ctx context.Context, entry *models.OutreachEntry, followupIndex int) error
}

// ReplyDetector reports whether an entry has received a reply since it was
// sent. Must be safe to call repeatedly.
type ReplyDetector interface {
	HasReplied(ctx context.Context, entry *models.OutreachEntry) (bool, error)
}

// EventPublisher receives notifications about pass outcomes. Optional;
// publish failures are logged, never surfaced.
type EventPublisher interface {
	PublishFollowupSent(entryID string, index int) error
	PublishSummary(summary *models.Summary) error
}

// ReconciliationRunner executes the heartbeat pass: detect replies, cancel
// obsolete follow-ups, send what is due. It holds no timer; an external
// scheduler (cron, HTTP trigger) invokes Run on whatever cadence it likes.
type ReconciliationRunner struct {
	store    *store.Store
	guard    *guardrail.Evaluator
	sender   Sender
	detector ReplyDetector
	events   EventPublisher

	// Scheduling a follow-up is the operator's explicit approval, so the
	// heartbeat evaluates sends as approved.
	approved bool

	now func() time.Time
}

// NewReconciliationRunner creates a heartbeat runner. events may be nil.
func NewReconciliationRunner(
	st *store.Store,
	guard *guardrail.Evaluator,
	sender Sender,
	detector ReplyDetector,
	events EventPublisher,
) *ReconciliationRunner {
	return &ReconciliationRunner{
		store:    st,
		guard:    guard,
		sender:   sender,
		detector: detector,
		events:   events,
		approved: true,
		now:      time.Now,
	}
}

// SetTimezone pins the runner clock to the given zone. The pass timestamp
// keys the daily send counters, so the zone decides when a day rolls over.
func (r *ReconciliationRunner) SetTimezone(loc *time.Location) {
	if loc == nil {
		return
	}
	r.now = func() time.Time { return time.Now().In(loc) }
}

type sentEvent struct {
	entryID string
	index   int
}

// Run executes one reconciliation pass and returns its summary.
//
// The whole pass is a single read-modify-write cycle: a version conflict
// restarts it against fresh state. Sender calls are not idempotent, so
// deliveries are memoized across restarts and only the state mutation is
// re-applied.
func (r *ReconciliationRunner) Run(ctx context.Context) (*models.Summary, error) {
	now := r.now()
	log.Printf("💓 Heartbeat pass starting at %s", now.Format(time.RFC3339))

	summary := &models.Summary{RanAt: now, Errors: []string{}}
	delivered := make(map[string]bool)
	var sentEvents []sentEvent

	err := r.store.Update(ctx, func(state *models.PersistedState) error {
		// A conflict retry re-runs against fresh state; start counting over.
		*summary = models.Summary{RanAt: now, Errors: []string{}}
		sentEvents = sentEvents[:0]

		unchecked := r.detectReplies(ctx, state, now, summary)
		r.sendDue(ctx, state, now, summary, delivered, &sentEvents, unchecked)

		t := now
		state.LastRunAt = &t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("heartbeat pass failed: %w", err)
	}

	r.publish(summary, sentEvents)

	log.Printf("💓 Heartbeat complete: %d replies, %d sent, %d deferred, %d cancelled, %d errors",
		summary.RepliesDetected, summary.FollowupsSent, summary.FollowupsDeferred,
		summary.FollowupsCancelled, len(summary.Errors))
	return summary, nil
}

// detectReplies polls the reply detector for every open entry that still
// has pending follow-ups, and cancels the sequence on a detected reply.
// Cancellation is unconditional: it never consults the guardrails.
// Returns the IDs whose reply check failed; their follow-ups must not be
// sent this pass, since a reply may have arrived unseen.
func (r *ReconciliationRunner) detectReplies(ctx context.Context, state *models.PersistedState, now time.Time, summary *models.Summary) map[string]bool {
	unchecked := make(map[string]bool)

	ids := make([]string, 0, len(state.Entries))
	for id := range state.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		entry := state.Entries[id]
		if !entry.IsOpen() || !hasPendingFollowups(state, id) {
			continue
		}

		replied, err := r.detector.HasReplied(ctx, entry)
		if err != nil {
			// Detector failure is isolated: the entry stays open and is
			// polled again next pass.
			summary.Errors = append(summary.Errors, fmt.Sprintf("reply check for %s: %v", id, err))
			unchecked[id] = true
			continue
		}
		if !replied {
			continue
		}

		entry.MarkReplied(now)
		n := state.CancelPendingFollowups(id)
		summary.RepliesDetected++
		summary.FollowupsCancelled += n
		log.Printf("📬 Reply detected from %s, cancelled %d pending follow-up(s)", entry.Company, n)
	}

	return unchecked
}

// sendDue processes due follow-ups in (due_at, index) order so that cap
// exhaustion always favors the earliest-due work
func (r *ReconciliationRunner) sendDue(
	ctx context.Context,
	state *models.PersistedState,
	now time.Time,
	summary *models.Summary,
	delivered map[string]bool,
	sentEvents *[]sentEvent,
	unchecked map[string]bool,
) {
	for _, f := range state.DueFollowups(now) {
		entry := state.Entry(f.EntryID)
		if entry == nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("follow-up %d references unknown entry %s", f.Index, f.EntryID))
			continue
		}

		if unchecked[f.EntryID] {
			// The reply check failed, so a reply may have arrived unseen.
			// Defer until a pass can confirm the entry is still open.
			summary.FollowupsDeferred++
			log.Printf("⏸  Follow-up %d for %s deferred (reply check failed)", f.Index, entry.Company)
			continue
		}

		if f.HasDraft() {
			if d := r.guard.CheckContent(f.Subject, f.Body); !d.Allowed {
				f.Cancelled = true
				summary.FollowupsCancelled++
				log.Printf("🚫 Follow-up %d for %s cancelled: %s", f.Index, entry.Company, d.Message)
				continue
			}
		}

		decision := r.guard.CanSend(guardrail.SendContext{
			Entry:        entry,
			DoNotContact: entry.Status == models.EntryStatusDoNotContact,
			Approved:     r.approved,
			EmailsToday:  state.CounterFor(now).EmailsSent,
			LastSendAt:   state.LastSendAt,
			Now:          now,
		})
		if !decision.Allowed {
			if decision.Reason.Retryable() {
				// Deferral, not failure: the record stays due and is
				// retried on the next pass.
				summary.FollowupsDeferred++
				log.Printf("⏸  Follow-up %d for %s deferred (%s)", f.Index, entry.Company, decision.Reason)
			} else {
				f.Cancelled = true
				summary.FollowupsCancelled++
				log.Printf("🚫 Follow-up %d for %s cancelled (%s)", f.Index, entry.Company, decision.Reason)
			}
			continue
		}

		key := fmt.Sprintf("%s#%d", f.EntryID, f.Index)
		if !delivered[key] {
			if err := r.sender.Send(ctx, entry.Clone(), f.Index); err != nil {
				// Sender failure is isolated per record: the follow-up
				// stays due, the rest of the pass continues.
				summary.Errors = append(summary.Errors, fmt.Sprintf("send follow-up %d for %s: %v", f.Index, f.EntryID, err))
				log.Printf("❌ Send failed for follow-up %d (%s): %v", f.Index, entry.Company, err)
				continue
			}
			delivered[key] = true
		}

		t := now
		f.Sent = true
		f.SentAt = &t
		state.RecordSend(now)
		summary.FollowupsSent++
		*sentEvents = append(*sentEvents, sentEvent{entryID: f.EntryID, index: f.Index})
		log.Printf("✅ Follow-up %d sent for %s", f.Index, entry.Company)
	}
}

// publish emits pass events after the flush, mirroring how sends are
// announced only once state is durable. Failures are logged and dropped.
func (r *ReconciliationRunner) publish(summary *models.Summary, sentEvents []sentEvent) {
	if r.events == nil {
		return
	}
	for _, ev := range sentEvents {
		if err := r.events.PublishFollowupSent(ev.entryID, ev.index); err != nil {
			log.Printf("Warning: failed to publish followup.sent for %s/%d: %v", ev.entryID, ev.index, err)
		}
	}
	if err := r.events.PublishSummary(summary); err != nil {
		log.Printf("Warning: failed to publish heartbeat summary: %v", err)
	}
}

func hasPendingFollowups(state *models.PersistedState, entryID string) bool {
	for _, f := range state.Followups {
		if f.EntryID == entryID && f.Pending() {
			return true
		}
	}
	return false
}
