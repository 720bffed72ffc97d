package scoring_test

import (
	"testing"

	model "github.com/okian/venturedesk/internal/domain/model"
	progress "github.com/okian/venturedesk/internal/domain/progress"
	scoring "github.com/okian/venturedesk/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQuickScore(t *testing.T) {
	Convey("Given the quick-ranking formula", t, func() {
		e := scoring.NewEngine()

		Convey("A cash-rich team in round one with no traction scores 27", func() {
			r := progress.Resolved{Cash: 60000, TRL: 3, Round: 1}
			// 25 cash + 0 trl + 0 validation + 2 equity + 0 round
			So(e.QuickScore(r), ShouldEqual, 27)
		})

		Convey("Full equity retention lifts the equity term to ten", func() {
			r := progress.Resolved{Cash: 60000, TRL: 3, EquityRetained: 100, Round: 1}
			So(e.QuickScore(r), ShouldEqual, 35)
		})

		Convey("Each capped term saturates", func() {
			r := progress.Resolved{
				Cash:           1_000_000,
				TRL:            9,
				Validations:    50,
				Interviews:     50,
				EquityRetained: 100,
				Round:          20,
			}
			// 25 + 24 + 15 + 10 + 10 + 15
			So(e.QuickScore(r), ShouldEqual, 99)
		})

		Convey("Negative cash earns nothing for the cash term", func() {
			r := progress.Resolved{Cash: -4000, TRL: 3, Round: 1}
			So(e.QuickScore(r), ShouldEqual, 2)
		})

		Convey("The score stays within zero and one hundred", func() {
			cases := []progress.Resolved{
				{},
				{Cash: -1e9, TRL: -5, Validations: -3, Interviews: -2, Round: -1},
				{Cash: 1e9, TRL: 99, Validations: 99, Interviews: 99, EquityRetained: 100, Round: 99},
			}
			for _, r := range cases {
				s := e.QuickScore(r)
				So(s, ShouldBeGreaterThanOrEqualTo, 0)
				So(s, ShouldBeLessThanOrEqualTo, 100)
			}
		})

		Convey("Each input is individually non-decreasing", func() {
			base := progress.Resolved{Cash: 12000, TRL: 5, Validations: 1, Interviews: 2, EquityRetained: 60, Round: 2}
			baseline := e.QuickScore(base)

			richer := base
			richer.Cash = 30000
			So(e.QuickScore(richer), ShouldBeGreaterThanOrEqualTo, baseline)

			readier := base
			readier.TRL = 7
			So(e.QuickScore(readier), ShouldBeGreaterThanOrEqualTo, baseline)

			validated := base
			validated.Validations = 3
			So(e.QuickScore(validated), ShouldBeGreaterThanOrEqualTo, baseline)

			interviewed := base
			interviewed.Interviews = 8
			So(e.QuickScore(interviewed), ShouldBeGreaterThanOrEqualTo, baseline)

			further := base
			further.Round = 5
			So(e.QuickScore(further), ShouldBeGreaterThanOrEqualTo, baseline)
		})
	})
}

func TestWeightedScore(t *testing.T) {
	Convey("Given the weighted breakdown", t, func() {
		e := scoring.NewEngine()
		team := model.Team{ID: "team-1", Mode: model.ModeResearch}

		Convey("A blank team lands in the lowest band", func() {
			snap := e.Score(team, progress.Resolved{TRL: 3})
			So(snap.BaseScore, ShouldBeGreaterThanOrEqualTo, 0)
			So(snap.Band, ShouldEqual, scoring.BandEarly)
			So(snap.Metrics, ShouldHaveLength, 7)
		})

		Convey("A maxed-out team stays bounded before bonuses", func() {
			r := progress.Resolved{
				Cash:           1_000_000,
				TRL:            9,
				Validations:    10,
				Interviews:     40,
				EquityRetained: 100,
				LegalForm:      "bv",
				InIncubator:    true,
				Grants:         1,
				Round:          8,
			}
			snap := e.Score(team, r)
			So(snap.BaseScore, ShouldBeLessThanOrEqualTo, 100)
			So(snap.TotalScore, ShouldEqual, snap.BaseScore+snap.BonusPoints)
			So(snap.Band, ShouldEqual, scoring.BandExceptional)
		})

		Convey("Startup teams score technology on development hours", func() {
			startup := model.Team{ID: "team-2", Mode: model.ModeStartup}
			r := progress.Resolved{DevelopmentHours: 30, TRL: 3}
			snap := e.Score(startup, r)
			for _, m := range snap.Metrics {
				if m.Metric == scoring.MetricTechnology {
					So(m.Raw, ShouldEqual, 60)
				}
			}
			So(snap.DevelopmentHours, ShouldEqual, 30)
		})

		Convey("Bonus rules fire on accumulated state", func() {
			r := progress.Resolved{
				TRL:            4,
				Validations:    3,
				Interviews:     10,
				EquityRetained: 100,
				Patents:        1,
				InIncubator:    true,
				Grants:         1,
			}
			snap := e.Score(team, r)
			names := make([]string, 0, len(snap.Bonuses))
			for _, b := range snap.Bonuses {
				names = append(names, b.Name)
			}
			So(names, ShouldResemble, []string{
				"Incubator backed",
				"Validated demand",
				"Patent pending",
				"Non-dilutive funding",
			})
			So(snap.BonusPoints, ShouldEqual, 17)
		})

		Convey("Custom weights reshape the base score", func() {
			heavy := scoring.NewEngine(scoring.WithWeights(map[string]float64{
				scoring.MetricCash: 90,
			}))
			r := progress.Resolved{Cash: 60000, TRL: 3}
			So(heavy.Score(team, r).BaseScore, ShouldBeGreaterThan, e.Score(team, r).BaseScore)
		})

		Convey("Unknown metric names in the weight map are ignored", func() {
			odd := scoring.NewEngine(scoring.WithWeights(map[string]float64{
				"charisma": 50,
			}))
			r := progress.Resolved{Cash: 20000, TRL: 5}
			So(odd.Score(team, r).BaseScore, ShouldEqual, e.Score(team, r).BaseScore)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a set of snapshots", t, func() {
		snaps := []scoring.Snapshot{
			{TeamID: "c", TotalScore: 40, Mode: model.ModeResearch, TRL: 5},
			{TeamID: "a", TotalScore: 40, Mode: model.ModeResearch, TRL: 5},
			{TeamID: "b", TotalScore: 72, Mode: model.ModeResearch, TRL: 4},
			{TeamID: "d", TotalScore: 40, Mode: model.ModeResearch, TRL: 7},
		}

		Convey("Ranking is score, then technology, then team ID", func() {
			ranked := scoring.Rank(snaps)
			ids := make([]string, len(ranked))
			for i, s := range ranked {
				ids[i] = s.TeamID
			}
			So(ids, ShouldResemble, []string{"b", "d", "a", "c"})
			So(ranked[0].Rank, ShouldEqual, 1)
			So(ranked[3].Rank, ShouldEqual, 4)
		})

		Convey("Ranking does not mutate its input", func() {
			_ = scoring.Rank(snaps)
			So(snaps[0].TeamID, ShouldEqual, "c")
			So(snaps[0].Rank, ShouldEqual, 0)
		})

		Convey("Repeated runs on identical input agree", func() {
			first := scoring.Rank(snaps)
			for i := 0; i < 10; i++ {
				So(scoring.Rank(snaps), ShouldResemble, first)
			}
		})

		Convey("Startup ties break on development hours", func() {
			tied := []scoring.Snapshot{
				{TeamID: "x", TotalScore: 50, Mode: model.ModeStartup, DevelopmentHours: 12},
				{TeamID: "y", TotalScore: 50, Mode: model.ModeStartup, DevelopmentHours: 40},
			}
			ranked := scoring.Rank(tied)
			So(ranked[0].TeamID, ShouldEqual, "y")
		})
	})
}
