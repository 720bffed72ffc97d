// Package model contains domain models passed between layers.
package model

import "time"

// GameMode selects which scoring regime applies to a team.
type GameMode string

// Supported game modes.
const (
	ModeStartup  GameMode = "startup"
	ModeResearch GameMode = "research"
)

// TeamStatus is the lifecycle state of a team within a game session.
type TeamStatus string

// Team lifecycle states.
const (
	StatusRegistered TeamStatus = "registered"
	StatusPlaying    TeamStatus = "playing"
	StatusBlocked    TeamStatus = "blocked"
)

// ReviewStatus is the state of a round review.
type ReviewStatus string

// Review states. Approved and rejected are terminal but re-enterable:
// a rejected review can be worked on again after an explicit team reset.
const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// OfficeIncubator marks a team that operates out of the incubator.
const OfficeIncubator = "incubator"

// Team is a denormalized snapshot of a team document. Owned by the
// persistence layer; this core never mutates it directly, it emits
// TeamStatusChange intents instead.
type Team struct {
	ID                string     `json:"id"`
	GameID            string     `json:"game_id"`
	Name              string     `json:"name"`
	Mode              GameMode   `json:"game_mode"`
	Status            TeamStatus `json:"status"`
	CurrentRound      int        `json:"current_round"`
	LastApprovedRound int        `json:"last_approved_round"`
}

// Funding holds the per-round money movements a team reported.
type Funding struct {
	Investment     float64 `json:"investment"`
	Loan           float64 `json:"loan"`
	Subsidy        float64 `json:"subsidy"`
	SubsidyFee     float64 `json:"subsidy_fee"`
	Revenue        float64 `json:"revenue"`
	InvestorEquity float64 `json:"investor_equity"` // percent given away
	LoanInterest   float64 `json:"loan_interest"`   // percent
}

// Progress is the cumulative progress snapshot submitted with a round.
type Progress struct {
	Cash             float64 `json:"cash"`
	DevelopmentHours int     `json:"development_hours"`
	InterviewsTotal  int     `json:"interviews_total"`
	ValidationsTotal int     `json:"validations_total"`
	InvestorAppeal   int     `json:"investor_appeal"`
	BankTrust        int     `json:"bank_trust"`
	TRL              int     `json:"current_trl"`
}

// Round is one submission cycle. Immutable once submitted: corrections
// happen through the review's override ledger, never in place.
type Round struct {
	TeamID      string          `json:"team_id"`
	Number      int             `json:"round"`
	Activities  map[string]bool `json:"activities"`
	Completed   []string        `json:"completed_activities"`
	Funding     Funding         `json:"funding"`
	Progress    Progress        `json:"progress"`
	Founders    int             `json:"founders"`
	Employees   int             `json:"employees"`
	LegalForm   string          `json:"legal_form"`
	Office      string          `json:"office"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// ContractCheck records the facilitator's verdict on one required contract.
// Approved is tri-state: nil means not yet decided.
type ContractCheck struct {
	Checked  bool   `json:"checked"`
	Approved *bool  `json:"approved,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// Override is one entry in the correction ledger. Original always holds the
// value the team actually submitted, even if the field is overridden again.
type Override struct {
	Field     string    `json:"field"`
	Original  float64   `json:"original"`
	Corrected float64   `json:"corrected"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is the facilitator-side record for one (team, round).
type Review struct {
	TeamID          string                   `json:"team_id"`
	RoundNumber     int                      `json:"round_number"`
	Status          ReviewStatus             `json:"status"`
	ContractChecks  map[string]ContractCheck `json:"contract_checks,omitempty"`
	Overrides       map[string]Override      `json:"overrides,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
	ReviewedBy      string                   `json:"reviewed_by,omitempty"`
	ReviewedAt      time.Time                `json:"reviewed_at,omitempty"`
}

// NewReview returns an empty pending review for a (team, round).
func NewReview(teamID string, round int) Review {
	return Review{
		TeamID:         teamID,
		RoundNumber:    round,
		Status:         ReviewPending,
		ContractChecks: make(map[string]ContractCheck),
		Overrides:      make(map[string]Override),
	}
}

// Clone returns a deep copy. The workflow mutates copies and only commits
// them back through the store, so a failed persist leaves prior state intact.
func (r Review) Clone() Review {
	out := r
	out.ContractChecks = make(map[string]ContractCheck, len(r.ContractChecks))
	for k, v := range r.ContractChecks {
		if v.Approved != nil {
			a := *v.Approved
			v.Approved = &a
		}
		out.ContractChecks[k] = v
	}
	out.Overrides = make(map[string]Override, len(r.Overrides))
	for k, v := range r.Overrides {
		out.Overrides[k] = v
	}
	return out
}

// TeamStatusChange is the intent a review decision emits instead of writing
// to the Team record itself. Negative round fields mean "leave unchanged".
type TeamStatusChange struct {
	TeamID            string
	Status            TeamStatus
	LastApprovedRound int
	CurrentRound      int
}

// TeamUpdate asks the scoring pipeline to re-derive one team. Generation
// orders updates per team so a superseded computation can be discarded.
type TeamUpdate struct {
	TeamID      string
	Generation  uint64
	RequestedAt time.Time
}
