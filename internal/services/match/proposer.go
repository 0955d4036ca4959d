package match

import "github.com/mcoot/skateduel/internal/model"

// ProposerPolicy decides who may set the next trick
type ProposerPolicy interface {
	// CheckProposer validates proposer against the match and its latest
	// turn, which is nil before the first turn
	CheckProposer(match *model.Match, previous *model.Turn, proposer model.RiderID) error
}

// AnyParticipant lets either player propose at any time
type AnyParticipant struct{}

func (AnyParticipant) CheckProposer(match *model.Match, previous *model.Turn, proposer model.RiderID) error {
	if !match.HasPlayer(proposer) {
		return model.ErrNotParticipant
	}
	return nil
}

// Alternating requires players to take turns setting tricks
type Alternating struct{}

func (Alternating) CheckProposer(match *model.Match, previous *model.Turn, proposer model.RiderID) error {
	if !match.HasPlayer(proposer) {
		return model.ErrNotParticipant
	}
	if previous != nil && previous.Proposer == proposer {
		return model.NewValidationError("the other rider sets the next trick")
	}
	return nil
}

// PolicyByName resolves a configured policy name; unknown names fall back
// to AnyParticipant
func PolicyByName(name string) ProposerPolicy {
	if name == "alternating" {
		return Alternating{}
	}
	return AnyParticipant{}
}
