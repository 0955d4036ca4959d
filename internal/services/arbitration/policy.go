package arbitration

import "github.com/mcoot/skateduel/internal/model"

// Verdict is the outcome of adjudicating the reviews of a disputed turn
type Verdict string

const (
	VerdictValidated Verdict = "validated"
	VerdictFailed    Verdict = "failed"
	VerdictPending   Verdict = "still_disputed"
)

// Outcome maps a decisive verdict onto the turn status it resolves to
func (v Verdict) Outcome() (model.TurnStatus, bool) {
	switch v {
	case VerdictValidated:
		return model.TurnStatusValidated, true
	case VerdictFailed:
		return model.TurnStatusFailed, true
	default:
		return "", false
	}
}

// Policy turns the reviews recorded so far into a verdict
type Policy interface {
	Adjudicate(reviews []*model.TurnReview) Verdict
}

// DefaultQuorum is the number of reviews Majority waits for
const DefaultQuorum = 3

// Majority decides once Quorum reviews are in and one decision outnumbers
// the other. A tie keeps the turn disputed until another review breaks it.
type Majority struct {
	Quorum int
}

func (p Majority) Adjudicate(reviews []*model.TurnReview) Verdict {
	quorum := p.Quorum
	if quorum <= 0 {
		quorum = 1
	}
	if len(reviews) < quorum {
		return VerdictPending
	}

	valid, invalid := 0, 0
	for _, r := range reviews {
		switch r.Decision {
		case model.DecisionValid:
			valid++
		case model.DecisionInvalid:
			invalid++
		}
	}

	switch {
	case valid > invalid:
		return VerdictValidated
	case invalid > valid:
		return VerdictFailed
	default:
		return VerdictPending
	}
}

// SingleReviewer lets the first review decide
type SingleReviewer struct{}

func (SingleReviewer) Adjudicate(reviews []*model.TurnReview) Verdict {
	return Majority{Quorum: 1}.Adjudicate(reviews[:min(len(reviews), 1)])
}

// PolicyByName resolves a configured policy; "single" selects SingleReviewer
// and anything else a Majority with the given quorum
func PolicyByName(name string, quorum int) Policy {
	if name == "single" {
		return SingleReviewer{}
	}
	return Majority{Quorum: quorum}
}
