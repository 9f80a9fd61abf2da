package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
)

func TestBuildAwardPointsQuery_GuardsUnscoredRows(t *testing.T) {
	t.Parallel()

	query, args, err := buildAwardPointsQuery(prediction.Award{PredictionID: "p1", UserID: "u1", Points: 3})
	if err != nil {
		t.Fatalf("build award query: %v", err)
	}
	want := "UPDATE predictions SET points = $1, updated_at = NOW() WHERE public_id = $2 AND points IS NULL AND deleted_at IS NULL"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 2 || args[0] != 3 || args[1] != "p1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestBuildIncrementTotalQuery_AddsToExistingTotal(t *testing.T) {
	t.Parallel()

	query, args, err := buildIncrementTotalQuery(prediction.Award{PredictionID: "p1", UserID: "u1", Points: 3})
	if err != nil {
		t.Fatalf("build increment query: %v", err)
	}
	want := "UPDATE users SET total_points = total_points + $1, updated_at = NOW() WHERE public_id = $2"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 2 || args[0] != 3 || args[1] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestBuildUnscoredMatchesQuery(t *testing.T) {
	t.Parallel()

	query, args, err := buildUnscoredMatchesQuery([]string{"m1", "m2"})
	if err != nil {
		t.Fatalf("build unscored query: %v", err)
	}
	want := "SELECT match_public_id FROM predictions WHERE match_public_id IN ($1, $2) AND points IS NULL AND deleted_at IS NULL GROUP BY match_public_id"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 2 || args[0] != "m1" || args[1] != "m2" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestPredictionRepository_AwardPoints_IncrementsOnlyAfterGuardedWrite(t *testing.T) {
	t.Parallel()

	// p2 was scored by an earlier cycle, so its guarded update hits no row.
	db, conn := newScriptedDB(t, func(query string, args []any) int64 {
		if strings.HasPrefix(query, "UPDATE predictions") && args[1] == "p2" {
			return 0
		}
		return 1
	})
	repo := NewPredictionRepository(db)

	written, err := repo.AwardPoints(context.Background(), []prediction.Award{
		{PredictionID: "p1", UserID: "u1", MatchID: "m1", Points: 3},
		{PredictionID: "p2", UserID: "u2", MatchID: "m1", Points: 1},
		{PredictionID: "p3", UserID: "u3", MatchID: "m1", Points: 0},
	})
	if err != nil {
		t.Fatalf("award points: %v", err)
	}
	if written != 2 {
		t.Fatalf("unexpected written count: got=%d want=2", written)
	}
	if conn.commitCount() != 1 {
		t.Fatalf("unexpected commits: got=%d want=1", conn.commitCount())
	}

	execs := conn.recorded()
	wantTables := []string{"predictions:p1", "users:u1", "predictions:p2", "predictions:p3", "users:u3"}
	if len(execs) != len(wantTables) {
		t.Fatalf("unexpected statement count: got=%d want=%d (%+v)", len(execs), len(wantTables), execs)
	}
	for i, exec := range execs {
		target := strings.Fields(exec.query)[1] + ":" + exec.args[len(exec.args)-1].(string)
		if target != wantTables[i] {
			t.Fatalf("unexpected statement %d: got=%s want=%s", i, target, wantTables[i])
		}
		if strings.HasPrefix(exec.query, "UPDATE users") {
			if !strings.Contains(exec.query, "total_points = total_points + $1") {
				t.Fatalf("total overwritten instead of incremented: %s", exec.query)
			}
		}
	}
}

func TestPredictionRepository_AwardPoints_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	db, conn := newScriptedDB(t, nil)
	written, err := NewPredictionRepository(db).AwardPoints(context.Background(), nil)
	if err != nil || written != 0 {
		t.Fatalf("unexpected result: written=%d err=%v", written, err)
	}
	if len(conn.recorded()) != 0 || conn.commitCount() != 0 {
		t.Fatalf("empty award touched the database")
	}
}
