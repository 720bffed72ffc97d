// Package scoring computes team scores from resolved progress. Two regimes
// exist: a quick formula feeding the live leaderboard, and a weighted
// per-metric breakdown used during facilitator review. Both are
// deterministic and bounded to [0, 100] before bonuses.
package scoring

import (
	"math"
	"sort"

	model "github.com/okian/venturedesk/internal/domain/model"
	progress "github.com/okian/venturedesk/internal/domain/progress"
)

// Metric names used in weight configuration and breakdowns.
const (
	MetricCash       = "cash"
	MetricTechnology = "technology"
	MetricValidation = "validation"
	MetricInterviews = "interviews"
	MetricEquity     = "equity"
	MetricLegal      = "legal"
	MetricSupport    = "support"
)

// Performance bands shown next to a team's total score.
const (
	BandExceptional = "Exceptional"
	BandStrong      = "Strong"
	BandSteady      = "Steady"
	BandEarly       = "Finding Footing"
)

// defaultWeights sum to 100 so the weighted base score stays in [0, 100].
func defaultWeights() map[string]float64 {
	return map[string]float64{
		MetricCash:       25,
		MetricTechnology: 20,
		MetricValidation: 20,
		MetricInterviews: 15,
		MetricEquity:     10,
		MetricLegal:      5,
		MetricSupport:    5,
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights replaces metric weights from a configuration map. Unknown
// metric names and non-positive weights are ignored so a partial map only
// adjusts the metrics it names.
func WithWeights(weights map[string]float64) Option {
	return func(e *Engine) {
		for metric, weight := range weights {
			if _, ok := e.weights[metric]; ok && weight > 0 {
				e.weights[metric] = weight
			}
		}
	}
}

// MetricScore is one row of the weighted breakdown.
type MetricScore struct {
	Metric   string  `json:"metric"`
	Raw      float64 `json:"raw"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Bonus is a discrete rule that added fixed points to the total.
type Bonus struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

// Snapshot is the full scoring verdict for one team. It is recomputed from
// scratch on every refresh, never patched in place.
type Snapshot struct {
	TeamID      string         `json:"team_id"`
	Mode        model.GameMode `json:"mode"`
	Rank        int            `json:"rank,omitempty"`
	Quick       int            `json:"quick_score"`
	BaseScore   float64        `json:"base_score"`
	BonusPoints float64        `json:"bonus_points"`
	TotalScore  float64        `json:"total_score"`
	Metrics     []MetricScore  `json:"metrics"`
	Bonuses     []Bonus        `json:"bonuses,omitempty"`
	Band        string         `json:"band"`

	// Tie-break inputs, carried so ranking needs no second lookup.
	TRL              int     `json:"trl"`
	DevelopmentHours float64 `json:"development_hours"`
	Round            int     `json:"round"`
}

// Engine computes quick and weighted scores.
type Engine struct {
	weights map[string]float64
}

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{weights: defaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// QuickScore is the capped-contribution leaderboard formula. Each term is
// individually bounded so the sum never exceeds 100.
func (e *Engine) QuickScore(r progress.Resolved) int {
	var score float64

	switch {
	case r.Cash >= 50000:
		score += 25
	case r.Cash >= 25000:
		score += 18
	case r.Cash >= 10000:
		score += 12
	case r.Cash >= 0:
		score += 5
	}

	score += clamp(0, 25, float64(r.TRL-3)*4)
	score += clamp(0, 15, float64(r.Validations)*8)
	score += clamp(0, 10, float64(r.Interviews)*2)

	switch {
	case r.EquityRetained > 70:
		score += 10
	case r.EquityRetained > 50:
		score += 6
	default:
		score += 2
	}

	score += clamp(0, 15, float64(r.Round-1)*3)

	return int(math.Round(score))
}

// Score produces the complete snapshot for a team: quick score, weighted
// breakdown, bonuses and performance band.
func (e *Engine) Score(team model.Team, r progress.Resolved) Snapshot {
	metrics := e.breakdown(team.Mode, r)

	var base float64
	for _, m := range metrics {
		base += m.Weighted
	}

	bonuses := earnedBonuses(r)
	var bonus float64
	for _, b := range bonuses {
		bonus += b.Points
	}

	total := base + bonus
	return Snapshot{
		TeamID:           team.ID,
		Mode:             team.Mode,
		Quick:            e.QuickScore(r),
		BaseScore:        base,
		BonusPoints:      bonus,
		TotalScore:       total,
		Metrics:          metrics,
		Bonuses:          bonuses,
		Band:             Band(total),
		TRL:              r.TRL,
		DevelopmentHours: float64(r.DevelopmentHours),
		Round:            r.Round,
	}
}

// breakdown normalizes every metric to [0, 100] via its curve and applies
// the configured weight. Weights are percentages of the base score.
func (e *Engine) breakdown(mode model.GameMode, r progress.Resolved) []MetricScore {
	tech := float64(r.TRL-3) * 100 / 6
	if mode == model.ModeStartup {
		tech = float64(r.DevelopmentHours) * 2
	}

	support := 0.0
	if r.InIncubator {
		support += 50
	}
	if r.Grants > 0 {
		support += 50
	}

	legal := 0.0
	if r.LegalForm != "" {
		legal = 100
	}

	raw := []MetricScore{
		{Metric: MetricCash, Raw: clamp(0, 100, r.Cash/600)},
		{Metric: MetricTechnology, Raw: clamp(0, 100, tech)},
		{Metric: MetricValidation, Raw: clamp(0, 100, float64(r.Validations)*20)},
		{Metric: MetricInterviews, Raw: clamp(0, 100, float64(r.Interviews)*5)},
		{Metric: MetricEquity, Raw: clamp(0, 100, r.EquityRetained)},
		{Metric: MetricLegal, Raw: legal},
		{Metric: MetricSupport, Raw: support},
	}

	for i := range raw {
		raw[i].Weight = e.weights[raw[i].Metric]
		raw[i].Weighted = raw[i].Raw * raw[i].Weight / 100
	}
	return raw
}

// earnedBonuses evaluates the discrete bonus rules against accumulated
// state. Each rule awards fixed points when its predicate holds.
func earnedBonuses(r progress.Resolved) []Bonus {
	var out []Bonus
	if r.InIncubator && r.EquityRetained > 70 {
		out = append(out, Bonus{Name: "Incubator backed", Points: 5})
	}
	if r.Validations >= 3 && r.Interviews >= 10 {
		out = append(out, Bonus{Name: "Validated demand", Points: 5})
	}
	if r.Patents >= 1 {
		out = append(out, Bonus{Name: "Patent pending", Points: 4})
	}
	if r.Grants >= 1 && r.EquityRetained == 100 {
		out = append(out, Bonus{Name: "Non-dilutive funding", Points: 3})
	}
	return out
}

// Band maps a total score to its performance band.
func Band(total float64) string {
	switch {
	case total >= 80:
		return BandExceptional
	case total >= 60:
		return BandStrong
	case total >= 40:
		return BandSteady
	default:
		return BandEarly
	}
}

// Rank orders snapshots into a total order and assigns distinct ranks
// starting at 1. Ordering: total score descending, then technology progress
// descending (TRL for research teams, development hours for startup teams),
// then team ID ascending. The last key makes the order stable across
// repeated runs on identical input.
func Rank(snapshots []Snapshot) []Snapshot {
	ranked := make([]Snapshot, len(snapshots))
	copy(ranked, snapshots)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		at, bt := techKey(a), techKey(b)
		if at != bt {
			return at > bt
		}
		return a.TeamID < b.TeamID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func techKey(s Snapshot) float64 {
	if s.Mode == model.ModeStartup {
		return s.DevelopmentHours
	}
	return float64(s.TRL)
}
