// Package guardrail implements the send-policy checks that gate every
// outbound email. Checks are pure over their inputs and return decision
// values rather than errors so callers can branch on the reason.
package guardrail

import (
	"fmt"
	"strings"
	"time"

	"mubot/internal/models"
)

// Reason identifies why a send was denied
type Reason string

const (
	ReasonBlocked            Reason = "blocked"
	ReasonApprovalRequired   Reason = "approval_required"
	ReasonDailyLimitExceeded Reason = "daily_limit_exceeded"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonContentPolicy      Reason = "content_policy"
)

// Retryable reports whether a denial is a deferral (retried on a later
// pass) rather than a permanent block.
func (r Reason) Retryable() bool {
	return r != ReasonBlocked && r != ReasonContentPolicy
}

// Decision is the outcome of a guardrail check
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// Allow returns a passing decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a failing decision with the given reason
func Deny(reason Reason, format string, args ...interface{}) Decision {
	return Decision{Allowed: false, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Config holds the guardrail policy settings
type Config struct {
	DailyCap         int
	MinSendInterval  time.Duration
	ApprovalRequired bool
	OptOutPhrases    []string
	BlockedTerms     []string
}

// DefaultOptOutPhrases are the indicators accepted as opt-out language
var DefaultOptOutPhrases = []string{
	"unsubscribe",
	"opt out",
	"don't want to receive",
	"no longer interested",
}

// DefaultBlockedTerms are spam-trigger terms denied by the content check
var DefaultBlockedTerms = []string{
	"guaranteed",
	"act now",
	"limited time",
	"winner",
	"free money",
}

// Evaluator applies the guardrail policy. It holds configuration only;
// all state is supplied by the caller on each check.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an evaluator with the given policy configuration.
// Empty phrase/term lists fall back to the defaults.
func NewEvaluator(cfg Config) *Evaluator {
	if len(cfg.OptOutPhrases) == 0 {
		cfg.OptOutPhrases = DefaultOptOutPhrases
	}
	if len(cfg.BlockedTerms) == 0 {
		cfg.BlockedTerms = DefaultBlockedTerms
	}
	return &Evaluator{cfg: cfg}
}

// SendContext carries the state a CanSend check evaluates against
type SendContext struct {
	Entry        *models.OutreachEntry
	DoNotContact bool
	Approved     bool
	EmailsToday  int
	LastSendAt   *time.Time
	Now          time.Time
}

// CanSend decides whether a send is currently permitted. The first failing
// check wins, in a fixed order, so denial reasons are deterministic:
// blocked, approval, daily cap, rate limit.
func (e *Evaluator) CanSend(sc SendContext) Decision {
	if sc.Entry == nil || sc.Entry.Status != models.EntryStatusSent || sc.DoNotContact {
		return Deny(ReasonBlocked, "entry is not in a sendable state")
	}

	if e.cfg.ApprovalRequired && !sc.Approved {
		return Deny(ReasonApprovalRequired, "explicit approval required before sending")
	}

	if sc.EmailsToday >= e.cfg.DailyCap {
		return Deny(ReasonDailyLimitExceeded, "daily limit of %d emails reached", e.cfg.DailyCap)
	}

	if sc.LastSendAt != nil {
		elapsed := sc.Now.Sub(*sc.LastSendAt)
		if elapsed < e.cfg.MinSendInterval {
			wait := e.cfg.MinSendInterval - elapsed
			return Deny(ReasonRateLimited, "wait %s before the next send", wait.Round(time.Second))
		}
	}

	return Allow()
}

// CheckContent validates message content: it must carry an opt-out phrase
// and must not contain any blocked spam-trigger term.
func (e *Evaluator) CheckContent(subject, body string) Decision {
	lower := strings.ToLower(body)

	hasOptOut := false
	for _, phrase := range e.cfg.OptOutPhrases {
		if strings.Contains(lower, phrase) {
			hasOptOut = true
			break
		}
	}
	if !hasOptOut {
		return Deny(ReasonContentPolicy, "content missing opt-out language")
	}

	haystack := strings.ToLower(subject) + " " + lower
	for _, term := range e.cfg.BlockedTerms {
		if strings.Contains(haystack, term) {
			return Deny(ReasonContentPolicy, "content contains blocked term %q", term)
		}
	}

	return Allow()
}
