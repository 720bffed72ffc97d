package simdata

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

var namePrefixes = []string{
	"Quantum", "Solar", "Urban", "Deep", "Bright", "Nova", "Atlas", "Vertex",
	"Circuit", "Harbor", "Pioneer", "Summit", "Drift", "Forge", "Lumen",
}

var nameSuffixes = []string{
	"Labs", "Dynamics", "Works", "Systems", "Robotics", "Foods", "Health",
	"Mobility", "Energy", "Analytics", "Studio", "Collective",
}

// tier shapes how well a generated team performs across rounds.
type tier struct {
	cashBase     float64
	cashGrowth   float64
	trlStart     int
	hoursPerRnd  int
	loanChance   float64
	investChance float64
}

var tiers = []tier{
	{cashBase: 45000, cashGrowth: 18000, trlStart: 4, hoursPerRnd: 60, loanChance: 0.2, investChance: 0.5},
	{cashBase: 20000, cashGrowth: 8000, trlStart: 3, hoursPerRnd: 40, loanChance: 0.4, investChance: 0.25},
	{cashBase: 6000, cashGrowth: 1500, trlStart: 3, hoursPerRnd: 25, loanChance: 0.6, investChance: 0.05},
}

func randFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

func randIndex(n int) int {
	return int(randFloat() * float64(n))
}

// GenerateTeams produces teams with uuid identifiers and plausible names.
func GenerateTeams(gameID string, count int) []Team {
	teams := make([]Team, 0, count)
	for i := 0; i < count; i++ {
		mode := "startup"
		if randFloat() < 0.3 {
			mode = "research"
		}
		teams = append(teams, Team{
			ID:     uuid.NewString(),
			GameID: gameID,
			Name:   fmt.Sprintf("%s %s", namePrefixes[randIndex(len(namePrefixes))], nameSuffixes[randIndex(len(nameSuffixes))]),
			Mode:   mode,
		})
	}
	return teams
}

// GenerateRounds produces a progression of rounds for one team. Each team is
// assigned a performance tier so the resulting leaderboard has spread.
func GenerateRounds(count int) []Round {
	t := tiers[randIndex(len(tiers))]
	rounds := make([]Round, 0, count)

	cash := t.cashBase
	hours := 0
	interviews := 0
	validations := 0
	trl := t.trlStart

	for n := 1; n <= count; n++ {
		cash += t.cashGrowth * (0.6 + randFloat()*0.8)
		hours += t.hoursPerRnd + randIndex(20)
		interviews += 1 + randIndex(4)
		if randFloat() < 0.4 {
			validations++
		}
		if randFloat() < 0.35 && trl < 9 {
			trl++
		}

		r := Round{
			Number:    n,
			Founders:  2 + randIndex(2),
			Employees: randIndex(n + 1),
			Progress: Progress{
				Cash:             cash,
				DevelopmentHours: hours,
				InterviewsTotal:  interviews,
				ValidationsTotal: validations,
				TRL:              trl,
			},
		}
		if randFloat() < t.loanChance {
			r.Funding.Loan = 10000 + randFloat()*15000
		}
		if randFloat() < t.investChance {
			r.Funding.Investment = 25000 + randFloat()*50000
		}
		if n >= 2 {
			r.LegalForm = "BV"
		}
		if randFloat() < 0.25 {
			r.Office = "incubator"
		}
		rounds = append(rounds, r)
	}
	return rounds
}
