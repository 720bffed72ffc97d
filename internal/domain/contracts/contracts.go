// Package contracts derives which third-party contracts a round requires.
//
// Everything here is a pure function of round data: same input, same set,
// no side effects and no error cases. Missing fields mean "not required".
package contracts

import (
	"sort"

	"github.com/okian/venturedesk/internal/domain/model"
)

// Type identifies a contract the facilitator must verify against the
// physical paperwork a team hands in.
type Type string

// Contract types, in evaluation order.
const (
	TypeKVK        Type = "kvk"
	TypeBank       Type = "bank"
	TypeInvestor   Type = "investor"
	TypePatent     Type = "patent"
	TypeIncubator  Type = "incubator"
	TypeSubsidy    Type = "subsidy"
	TypeNetworker  Type = "networker"
	TypeTechExpert Type = "techExpert"
)

// Activity flag names used by the rule table.
const (
	ActivityKVKConsult              = "kvkConsult"
	ActivityPatentDIY               = "patentDIY"
	ActivityPatentOutsourced        = "patentOutsourced"
	ActivitySubsidy                 = "subsidy"
	ActivityNetworking              = "networking"
	ActivityMarketAnalysisDIY       = "marketAnalysisDIY"
	ActivityMarketAnalysisOutsource = "marketAnalysisOutsourced"
)

// Activity codes that trigger expert contracts.
const (
	ActivityTTODiscussion        = "ttoDiscussion"
	ActivityLicenceNegotiation   = "licenceNegotiation"
	ActivityPatentFiling         = "patentFiling"
	ActivityPatentSearch         = "patentSearch"
	ActivityInvestorMeeting      = "investorMeeting"
	ActivityInvestorNegotiation  = "investorNegotiation"
	ActivityGrantTakeoff         = "grantTakeoff"
	ActivityGrantWBSO            = "grantWBSO"
	ActivityGrantRegional        = "grantRegional"
	ActivityIncubatorApplication = "incubatorApplication"
	ActivityBankMeeting          = "bankMeeting"
	ActivityLoanApplication      = "loanApplication"
	ActivityIndustryExploration  = "industryExploration"
	ActivityPilotProject         = "pilotProject"
	ActivityCustomerInterviews   = "customerInterviews"
	ActivityCustomerValidation   = "customerValidation"
	ActivityPatentApplication    = "patentApplication"
)

// rule maps a round predicate to the contract it requires. Rules are
// evaluated independently; the result is the union of matches.
type rule struct {
	contract Type
	matches  func(model.Round) bool
}

var rules = []rule{
	{TypeKVK, func(r model.Round) bool { return r.Activities[ActivityKVKConsult] }},
	{TypeBank, func(r model.Round) bool { return r.Funding.Loan > 0 }},
	{TypeInvestor, func(r model.Round) bool { return r.Funding.Investment > 0 }},
	{TypePatent, func(r model.Round) bool {
		return r.Activities[ActivityPatentDIY] || r.Activities[ActivityPatentOutsourced]
	}},
	{TypeIncubator, func(r model.Round) bool { return r.Office == model.OfficeIncubator }},
	{TypeSubsidy, func(r model.Round) bool {
		return r.Activities[ActivitySubsidy] || r.Funding.Subsidy > 0
	}},
	{TypeNetworker, func(r model.Round) bool { return r.Activities[ActivityNetworking] }},
	{TypeTechExpert, func(r model.Round) bool {
		return r.Activities[ActivityMarketAnalysisDIY] || r.Activities[ActivityMarketAnalysisOutsource]
	}},
}

// Required returns the contract types a round requires, in rule-table order.
func Required(r model.Round) []Type {
	out := make([]Type, 0, len(rules))
	for _, rl := range rules {
		if rl.matches(r) {
			out = append(out, rl.contract)
		}
	}
	return out
}

// History returns the cumulative activity set for a team: every completed
// activity from any round plus every currently flagged one. A contract that
// became required stays required even if the flag is later cleared.
func History(rounds []model.Round) map[string]bool {
	seen := make(map[string]bool)
	for _, r := range rounds {
		for _, code := range r.Completed {
			seen[code] = true
		}
		for code, on := range r.Activities {
			if on {
				seen[code] = true
			}
		}
	}
	return seen
}

// ExpertContract is a fine-grained document owed to a named expert role,
// triggered by specific activity codes.
type ExpertContract struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Activities []string `json:"activities"`
}

// Expert groups the contracts one expert role can demand.
type Expert struct {
	Role      string
	Name      string
	Contracts []ExpertContract
}

// Experts is the full expert-contract table.
var Experts = []Expert{
	{Role: "tto", Name: "TTO Officer", Contracts: []ExpertContract{
		{ID: "ttoMeeting", Name: "TTO Meeting Notes", Activities: []string{ActivityTTODiscussion}},
		{ID: "licenceAgreement", Name: "Licence Agreement", Activities: []string{ActivityLicenceNegotiation}},
	}},
	{Role: "patent", Name: "Patent Attorney", Contracts: []ExpertContract{
		{ID: "patentStrategy", Name: "Patent Strategy Form", Activities: []string{ActivityPatentFiling, ActivityPatentDIY}},
		{ID: "ftoReport", Name: "FTO Report", Activities: []string{ActivityPatentSearch}},
	}},
	{Role: "investor", Name: "VC / Investor", Contracts: []ExpertContract{
		{ID: "pitchDeck", Name: "Pitch Deck Feedback", Activities: []string{ActivityInvestorMeeting}},
		{ID: "termSheet", Name: "Term Sheet", Activities: []string{ActivityInvestorNegotiation}},
	}},
	{Role: "grant", Name: "Grant Advisor", Contracts: []ExpertContract{
		{ID: "grantApplication", Name: "Grant Application", Activities: []string{ActivityGrantTakeoff, ActivityGrantWBSO, ActivityGrantRegional}},
	}},
	{Role: "incubator", Name: "Incubator", Contracts: []ExpertContract{
		{ID: "incubatorApp", Name: "Incubator Application", Activities: []string{ActivityIncubatorApplication}},
	}},
	{Role: "bank", Name: "Bank / Loan Officer", Contracts: []ExpertContract{
		{ID: "loanApplication", Name: "Loan Application", Activities: []string{ActivityBankMeeting}},
		{ID: "loanAgreement", Name: "Loan Agreement", Activities: []string{ActivityLoanApplication}},
	}},
	{Role: "industry", Name: "Industry Partner", Contracts: []ExpertContract{
		{ID: "ndaAgreement", Name: "NDA Agreement", Activities: []string{ActivityIndustryExploration}},
		{ID: "pilotAgreement", Name: "Pilot Agreement", Activities: []string{ActivityPilotProject}},
	}},
	{Role: "customer", Name: "Customer Expert", Contracts: []ExpertContract{
		{ID: "interviewLog", Name: "Interview Log", Activities: []string{ActivityCustomerInterviews}},
		{ID: "loi", Name: "Letter of Intent", Activities: []string{ActivityCustomerValidation}},
	}},
}

// RequiredExpert returns every expert contract triggered by the given
// cumulative activity history, in table order.
func RequiredExpert(history map[string]bool) []ExpertContract {
	var out []ExpertContract
	for _, ex := range Experts {
		for _, c := range ex.Contracts {
			for _, act := range c.Activities {
				if history[act] {
					out = append(out, c)
					break
				}
			}
		}
	}
	return out
}

// Names returns the required contract types as sorted strings, handy for
// logging and API payloads.
func Names(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	sort.Strings(out)
	return out
}
