package service

import (
	"github.com/openclaw/fleet-worker-go/internal/model"
)

// CandidateFilter holds the per-cycle gate state for one account.
type CandidateFilter struct {
	// Eligible is keyed by action code.
	Eligible map[string]bool
	// QuotaAllowed is keyed by resource class.
	QuotaAllowed map[string]bool
	// InvasivePaced excludes invasive kinds while the account's global cooldown runs.
	InvasivePaced bool
	// LastSucceeded is the code of the account's most recent dispatch when
	// that dispatch succeeded. Non-repeatable kinds with this code are skipped.
	LastSucceeded string
}

// BuildCandidates applies the activity, eligibility, quota, pacing and
// repetition gates in catalog order, then drops rest kinds whenever any other kind with a positive
// weight survived.
func BuildCandidates(kinds []model.ActionKind, f CandidateFilter) []Candidate {
	var work, rest []Candidate
	for _, k := range kinds {
		if !k.IsActive() || !f.Eligible[k.Code] {
			continue
		}
		if k.QuotaGated() && !f.QuotaAllowed[k.QuotaClass] {
			continue
		}
		if k.Invasive && f.InvasivePaced {
			continue
		}
		if !k.Repeatable && k.Code == f.LastSucceeded {
			continue
		}
		if k.Rest {
			rest = append(rest, Candidate{Kind: k})
		} else {
			work = append(work, Candidate{Kind: k})
		}
	}

	for _, c := range work {
		if c.Kind.Weight > 0 {
			return work
		}
	}
	return append(work, rest...)
}
