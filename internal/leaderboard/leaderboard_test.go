package leaderboard_test

import (
	"context"
	"errors"
	"testing"

	model "github.com/okian/venturedesk/internal/domain/model"
	scoring "github.com/okian/venturedesk/internal/domain/scoring"
	"github.com/okian/venturedesk/internal/leaderboard"
	. "github.com/smartystreets/goconvey/convey"
)

func record(name string, total float64, round int) leaderboard.Record {
	return leaderboard.Record{
		Name:      name,
		Status:    model.StatusPlaying,
		HasRounds: true,
		Snapshot: scoring.Snapshot{
			TeamID:     name,
			Mode:       model.ModeResearch,
			TotalScore: total,
			Round:      round,
			Band:       scoring.Band(total),
		},
	}
}

func apply(a *leaderboard.Aggregator, rec leaderboard.Record) bool {
	gen := a.NextGeneration(rec.Snapshot.TeamID)
	return a.Apply(context.Background(), rec.Snapshot.TeamID, gen, rec)
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()

	Convey("Given an aggregator with three teams", t, func() {
		a := leaderboard.New()
		So(apply(a, record("alpha", 55, 3)), ShouldBeTrue)
		So(apply(a, record("beta", 72, 4)), ShouldBeTrue)
		So(apply(a, record("gamma", 31, 2)), ShouldBeTrue)

		Convey("TopN returns teams in rank order", func() {
			top, err := a.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
			So(top[0].TeamID, ShouldEqual, "beta")
			So(top[0].Rank, ShouldEqual, 1)
			So(top[2].TeamID, ShouldEqual, "gamma")
		})

		Convey("Rank finds a single team", func() {
			entry, err := a.Rank(ctx, "alpha")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 2)
			So(entry.Score, ShouldEqual, 55)
		})

		Convey("Rank on an unknown team returns not found", func() {
			_, err := a.Rank(ctx, "nobody")
			So(errors.Is(err, leaderboard.ErrNotFound), ShouldBeTrue)
		})

		Convey("TopN rejects a non-positive limit", func() {
			_, err := a.TopN(ctx, 0)
			So(errors.Is(err, leaderboard.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("A new record re-ranks the board", func() {
			So(apply(a, record("gamma", 90, 5)), ShouldBeTrue)
			top, _ := a.TopN(ctx, 1)
			So(top[0].TeamID, ShouldEqual, "gamma")
		})

		Convey("A stale generation is discarded, not merged", func() {
			old := a.NextGeneration("alpha")
			_ = a.NextGeneration("alpha") // supersedes old
			So(a.Apply(ctx, "alpha", old, record("alpha", 99, 9)), ShouldBeFalse)

			entry, _ := a.Rank(ctx, "alpha")
			So(entry.Score, ShouldEqual, 55)
		})

		Convey("A failed refresh keeps the last-known record", func() {
			gen := a.NextGeneration("beta")
			a.MarkFailed(ctx, "beta", gen, errors.New("store unavailable"))

			top, err := a.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
			So(top[0].TeamID, ShouldEqual, "beta")
			So(top[0].Score, ShouldEqual, 72)
		})

		Convey("Forget removes a team entirely", func() {
			a.Forget(ctx, "beta")
			So(a.Count(ctx), ShouldEqual, 2)
			_, err := a.Rank(ctx, "beta")
			So(errors.Is(err, leaderboard.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a team with no submitted rounds", t, func() {
		a := leaderboard.New()
		So(apply(a, record("ranked", 60, 2)), ShouldBeTrue)

		fresh := leaderboard.Record{Name: "fresh", Status: model.StatusRegistered}
		gen := a.NextGeneration("fresh")
		So(a.Apply(ctx, "fresh", gen, fresh), ShouldBeTrue)

		Convey("It is excluded from ranking but counted in tallies", func() {
			top, _ := a.TopN(ctx, 10)
			So(top, ShouldHaveLength, 1)

			tallies := a.Tallies(ctx)
			So(tallies.Teams, ShouldEqual, 2)
			So(tallies.Playing, ShouldEqual, 1)
			So(tallies.HighestScore, ShouldEqual, 60)
		})
	})

	Convey("Given pending reviews and blocked teams", t, func() {
		a := leaderboard.New()

		blocked := record("blocked", 20, 1)
		blocked.Status = model.StatusBlocked
		So(apply(a, blocked), ShouldBeTrue)

		pending := record("pending", 44, 2)
		pending.PendingReview = true
		So(apply(a, pending), ShouldBeTrue)

		Convey("Tallies reflect statuses and review backlog", func() {
			tallies := a.Tallies(ctx)
			So(tallies.Blocked, ShouldEqual, 1)
			So(tallies.Playing, ShouldEqual, 1)
			So(tallies.PendingReviews, ShouldEqual, 1)
			So(tallies.AverageScore, ShouldEqual, 32)
		})
	})
}
