// Package progress is the single place that turns raw team and round
// records into a resolved progress view. Every consumer (scoring, display,
// aggregation) goes through Resolve so defaults and override corrections
// are applied consistently instead of being re-derived at each read site.
package progress

import (
	"github.com/okian/venturedesk/internal/domain/contracts"
	"github.com/okian/venturedesk/internal/domain/model"
)

// Defaults used when a team has submitted rounds but a field is absent.
const (
	defaultCash   = 5000
	defaultTRL    = 3
	defaultAppeal = 2
	defaultTrust  = 2
)

// Resolved is the canonical progress view of one team.
type Resolved struct {
	TeamID             string
	Round              int
	HasRounds          bool
	Cash               float64
	TRL                int
	DevelopmentHours   int
	Interviews         int
	Validations        int
	EquityRetained     float64
	InvestorAppeal     int
	BankTrust          int
	LegalForm          string
	Patents            int
	ProvisionalPatents int
	InIncubator        bool
	Grants             int
	Loan               float64
}

// Resolve builds the canonical view from a team, its rounds, and the review
// of its latest round. Overrides from the review ledger are applied to the
// latest round's funding before anything is derived; the round record itself
// is never touched. Rounds may arrive unordered or with gaps.
func Resolve(team model.Team, rounds []model.Round, latestReview *model.Review) Resolved {
	out := Resolved{
		TeamID:         team.ID,
		Round:          team.CurrentRound,
		Cash:           defaultCash,
		TRL:            defaultTRL,
		InvestorAppeal: defaultAppeal,
		BankTrust:      defaultTrust,
		EquityRetained: 100,
	}
	if len(rounds) == 0 {
		return out
	}

	latest := rounds[0]
	for _, r := range rounds[1:] {
		if r.Number > latest.Number {
			latest = r
		}
	}
	if latestReview != nil && latestReview.RoundNumber == latest.Number {
		latest = corrected(latest, latestReview)
	}

	out.HasRounds = true
	if latest.Number > out.Round {
		out.Round = latest.Number
	}
	if out.Round < 1 {
		out.Round = 1
	}

	p := latest.Progress
	out.Cash = p.Cash
	if p.TRL > 0 {
		out.TRL = p.TRL
	}
	out.DevelopmentHours = p.DevelopmentHours
	out.Interviews = p.InterviewsTotal
	out.Validations = p.ValidationsTotal
	if p.InvestorAppeal > 0 {
		out.InvestorAppeal = p.InvestorAppeal
	}
	if p.BankTrust > 0 {
		out.BankTrust = p.BankTrust
	}

	out.EquityRetained = 100 - latest.Funding.InvestorEquity
	if out.EquityRetained < 0 {
		out.EquityRetained = 0
	}
	out.Loan = latest.Funding.Loan
	out.LegalForm = latest.LegalForm

	hist := contracts.History(rounds)
	if hist[contracts.ActivityPatentApplication] {
		out.Patents = 1
	}
	if hist[contracts.ActivityPatentSearch] {
		out.ProvisionalPatents = 1
	}
	out.InIncubator = hist[contracts.ActivityIncubatorApplication] || latest.Office == model.OfficeIncubator
	if latest.Funding.Subsidy > 0 {
		out.Grants = 1
	}
	return out
}

// corrected returns a copy of the round with the review's override ledger
// applied to the overridable funding fields.
func corrected(r model.Round, rev *model.Review) model.Round {
	for _, o := range rev.Overrides {
		switch o.Field {
		case "funding.revenue":
			r.Funding.Revenue = o.Corrected
		case "funding.subsidy":
			r.Funding.Subsidy = o.Corrected
		case "funding.subsidyFee":
			r.Funding.SubsidyFee = o.Corrected
		case "funding.investment":
			r.Funding.Investment = o.Corrected
		case "funding.investorEquity":
			r.Funding.InvestorEquity = o.Corrected
		case "funding.loan":
			r.Funding.Loan = o.Corrected
		case "funding.loanInterest":
			r.Funding.LoanInterest = o.Corrected
		}
	}
	return r
}

// Warning flags a progress condition the facilitator should look at.
type Warning struct {
	Severity string `json:"severity"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// Warnings derives facilitator warnings from a resolved view.
func Warnings(r Resolved) []Warning {
	if !r.HasRounds {
		return nil
	}
	var out []Warning
	if r.Cash < 0 {
		out = append(out, Warning{Severity: "danger", Field: "cash", Message: "Negative cash flow"})
	}
	if r.Cash >= 0 && r.Cash < 1000 {
		out = append(out, Warning{Severity: "warning", Field: "cash", Message: "Low cash reserves"})
	}
	if r.Interviews == 0 {
		out = append(out, Warning{Severity: "warning", Field: "interviews", Message: "No customer interviews yet"})
	}
	if r.Validations == 0 {
		out = append(out, Warning{Severity: "warning", Field: "validation", Message: "No customer validation yet"})
	}
	return out
}
