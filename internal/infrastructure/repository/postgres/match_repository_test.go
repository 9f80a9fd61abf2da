package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
)

func TestBuildApplyDiffQuery_GuardsManualOverride(t *testing.T) {
	t.Parallel()

	finished := match.StatusFinished
	home, away := 2, 1
	kickoff := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	query, args, err := buildApplyDiffQuery(match.Diff{
		MatchID:     "m1",
		Status:      &finished,
		HomeScore:   &home,
		AwayScore:   &away,
		ScheduledAt: &kickoff,
	})
	if err != nil {
		t.Fatalf("build apply diff query: %v", err)
	}
	want := "UPDATE matches SET status = $1, home_score = $2, away_score = $3, scheduled_at = $4, last_updated_at = NOW(), updated_at = NOW() WHERE public_id = $5 AND is_manual_override = $6 AND deleted_at IS NULL"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 6 || args[0] != "finished" || args[4] != "m1" || args[5] != false {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestBuildApplyDiffQuery_LinkOnly(t *testing.T) {
	t.Parallel()

	externalID := "100"
	query, args, err := buildApplyDiffQuery(match.Diff{MatchID: "m1", ExternalID: &externalID})
	if err != nil {
		t.Fatalf("build apply diff query: %v", err)
	}
	want := "UPDATE matches SET external_id = $1, last_updated_at = NOW(), updated_at = NOW() WHERE public_id = $2 AND is_manual_override = $3 AND deleted_at IS NULL"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 3 || args[0] != "100" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestMatchRepository_ApplyDiffs_ReportsOnlyAffectedRows(t *testing.T) {
	t.Parallel()

	// m2 is pinned under manual override, so the guarded update hits no row.
	db, conn := newScriptedDB(t, func(_ string, args []any) int64 {
		for _, arg := range args {
			if arg == "m2" {
				return 0
			}
		}
		return 1
	})
	repo := NewMatchRepository(db)

	finished := match.StatusFinished
	written, err := repo.ApplyDiffs(context.Background(), []match.Diff{
		{MatchID: "m1", Status: &finished, EntersFinished: true},
		{MatchID: "m2", Status: &finished, EntersFinished: true},
		{MatchID: "m3"},
	})
	if err != nil {
		t.Fatalf("apply diffs: %v", err)
	}
	if len(written) != 1 || written[0] != "m1" {
		t.Fatalf("unexpected written ids: got=%v want=[m1]", written)
	}
	if got := len(conn.recorded()); got != 2 {
		t.Fatalf("unexpected statement count: got=%d want=2", got)
	}
	if conn.commitCount() != 1 {
		t.Fatalf("unexpected commits: got=%d want=1", conn.commitCount())
	}
}
