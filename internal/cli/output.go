package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/arbitration"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case *response.AuthResponse:
		o.printRider(v.Rider)
		fmt.Fprintf(o.w, "Token expires: %s\n", v.ExpiresAt.Format("2006-01-02 15:04 MST"))
	case *model.RiderProfile:
		o.printRider(v)
	case *response.RewardsResponse:
		o.printRewards(v)
	case *model.Match:
		o.printMatch(v)
	case *model.Turn:
		o.printTurn(v)
	case *response.TurnsResponse:
		for i, t := range v.Turns {
			if i > 0 {
				fmt.Fprintln(o.w)
			}
			o.printTurn(t)
		}
	case *response.RespondResponse:
		fmt.Fprintf(o.w, "Turn: %s\n", v.Status)
		o.printMatch(v.Match)
	case *response.TurnResultResponse:
		o.printTurn(v.Turn)
		fmt.Fprintln(o.w)
		o.printMatch(v.Match)
	case *response.ReviewsResponse:
		o.printReviews(v.Reviews)
	case *arbitration.Submission:
		fmt.Fprintf(o.w, "Review %s recorded\n", v.Review.ID)
		fmt.Fprintf(o.w, "Verdict: %s\n", v.Verdict)
		fmt.Fprintf(o.w, "Turn: %s\n", v.Turn.Status)
	case *HealthResult:
		fmt.Fprintf(o.w, "Status: %s (%dms)\n", v.Status, v.LatencyMS)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printRider(r *model.RiderProfile) {
	if r == nil {
		return
	}
	fmt.Fprintf(o.w, "Rider: %s\n", r.Handle)
	if r.Country != "" {
		fmt.Fprintf(o.w, "Country: %s\n", r.Country)
	}
	fmt.Fprintf(o.w, "Elo: %d  XP: %d  Coins: %d\n", r.Elo, r.XP, r.Coins)
}

func (o *Output) printRewards(r *response.RewardsResponse) {
	b := r.Balance
	fmt.Fprintf(o.w, "Balance (%s): Elo %d  XP %d  Coins %d\n", b.RiderID, b.Elo, b.XP, b.Coins)
	for _, rw := range r.Rewards {
		fmt.Fprintf(o.w, "  %+d %s (%s)\n", rw.Delta, rw.Kind, rw.Reason)
	}
}

func (o *Output) printMatch(m *model.Match) {
	if m == nil {
		return
	}
	fmt.Fprintf(o.w, "Match: %s (%s)\n", m.ID, m.Mode)
	fmt.Fprintf(o.w, "Status: %s\n", m.Status)
	fmt.Fprintf(o.w, "  %-16s %s\n", m.PlayerA, lettersOrDash(m.LettersA))
	fmt.Fprintf(o.w, "  %-16s %s\n", m.PlayerB, lettersOrDash(m.LettersB))
	if m.Winner != nil {
		fmt.Fprintf(o.w, "Winner: %s\n", *m.Winner)
	}
}

func (o *Output) printTurn(t *model.Turn) {
	if t == nil {
		return
	}
	fmt.Fprintf(o.w, "Turn %d: %s (%s)\n", t.TurnIndex, t.TrickName, t.ID)
	fmt.Fprintf(o.w, "Proposer: %s\n", t.Proposer)
	fmt.Fprintf(o.w, "Status: %s\n", t.Status)
	if t.Difficulty != nil {
		fmt.Fprintf(o.w, "Difficulty: %d\n", *t.Difficulty)
	}
	if t.RemoteDeadline != nil {
		fmt.Fprintf(o.w, "Deadline: %s\n", t.RemoteDeadline.Format("2006-01-02 15:04 MST"))
	}
}

func (o *Output) printReviews(reviews []*model.TurnReview) {
	if len(reviews) == 0 {
		fmt.Fprintln(o.w, "No reviews")
		return
	}
	for _, r := range reviews {
		line := fmt.Sprintf("  %s: %s", r.Reviewer, r.Decision)
		if r.Reason != "" {
			line += " - " + r.Reason
		}
		fmt.Fprintln(o.w, line)
	}
}

func lettersOrDash(letters string) string {
	if letters == "" {
		return "-"
	}
	return letters
}
