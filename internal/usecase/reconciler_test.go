package usecase

import (
	"testing"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
)

var reconcileKickoff = time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)

func storedMatch(id, externalID, home, away string, status match.Status) match.Match {
	return match.Match{
		ID:             id,
		ChampionshipID: "eng-premier-league-2026",
		HomeTeam:       match.Team{Name: home},
		AwayTeam:       match.Team{Name: away},
		ExternalID:     externalID,
		ScheduledAt:    reconcileKickoff,
		Status:         status,
	}
}

func feedMatch(externalID, home, away string, status match.Status, homeScore, awayScore *int) feed.Match {
	return feed.Match{
		ExternalID:   externalID,
		HomeTeamName: home,
		AwayTeamName: away,
		Status:       status,
		ResolvedHome: homeScore,
		ResolvedAway: awayScore,
		KickoffAt:    reconcileKickoff,
	}
}

func applyDiff(m match.Match, diff match.Diff) match.Match {
	if diff.Status != nil {
		m.Status = *diff.Status
	}
	if diff.HomeScore != nil {
		m.HomeScore = intRef(*diff.HomeScore)
	}
	if diff.AwayScore != nil {
		m.AwayScore = intRef(*diff.AwayScore)
	}
	if diff.ScheduledAt != nil {
		m.ScheduledAt = *diff.ScheduledAt
	}
	if diff.ExternalID != nil {
		m.ExternalID = *diff.ExternalID
	}
	return m
}

func intRef(v int) *int {
	return &v
}

func TestReconcile_SecondPassIsEmpty(t *testing.T) {
	t.Parallel()

	active := []match.Match{storedMatch("m1", "100", "Arsenal FC", "Liverpool FC", match.StatusScheduled)}
	items := []feed.Match{feedMatch("100", "Arsenal FC", "Liverpool FC", match.StatusLive, intRef(1), intRef(0))}

	first := Reconcile(active, items, ReconcileOptions{})
	if len(first.Diffs) != 1 {
		t.Fatalf("unexpected first pass diffs: got=%d want=1", len(first.Diffs))
	}
	diff := first.Diffs[0]
	if *diff.Status != match.StatusLive || *diff.HomeScore != 1 || *diff.AwayScore != 0 {
		t.Fatalf("unexpected diff: %+v", diff)
	}

	active[0] = applyDiff(active[0], diff)
	second := Reconcile(active, items, ReconcileOptions{})
	if len(second.Diffs) != 0 {
		t.Fatalf("expected idempotent second pass, got %+v", second.Diffs)
	}
}

func TestReconcile_ManualOverrideNeverDiffs(t *testing.T) {
	t.Parallel()

	pinned := storedMatch("m1", "100", "Arsenal FC", "Liverpool FC", match.StatusFinished)
	pinned.HomeScore, pinned.AwayScore = intRef(1), intRef(0)
	pinned.IsManualOverride = true
	items := []feed.Match{feedMatch("100", "Arsenal FC", "Liverpool FC", match.StatusLive, intRef(4), intRef(4))}
	items[0].KickoffAt = reconcileKickoff.Add(2 * time.Hour)

	got := Reconcile([]match.Match{pinned}, items, ReconcileOptions{})
	if len(got.Diffs) != 0 || len(got.Diagnostics) != 0 {
		t.Fatalf("override match touched: diffs=%+v diagnostics=%+v", got.Diffs, got.Diagnostics)
	}
}

func TestReconcile_SmartLinkConverges(t *testing.T) {
	t.Parallel()

	active := []match.Match{storedMatch("m1", "", "Chelsea FC", "Manchester City FC", match.StatusScheduled)}
	items := []feed.Match{feedMatch("42", "Chelsea FC", "Manchester City FC", match.StatusScheduled, nil, nil)}

	first := Reconcile(active, items, ReconcileOptions{})
	if first.Linked != 1 || len(first.Diffs) != 1 {
		t.Fatalf("expected one smart link: linked=%d diffs=%d", first.Linked, len(first.Diffs))
	}
	if !first.Diffs[0].IsLinkOnly() || *first.Diffs[0].ExternalID != "42" {
		t.Fatalf("unexpected link diff: %+v", first.Diffs[0])
	}

	active[0] = applyDiff(active[0], first.Diffs[0])
	items[0].HomeTeamName = "Chelsea"
	second := Reconcile(active, items, ReconcileOptions{})
	if second.Linked != 0 || len(second.Diffs) != 0 || len(second.Diagnostics) != 0 {
		t.Fatalf("expected id-linked quiet pass: %+v", second)
	}
}

func TestReconcile_IDLinkWinsOverName(t *testing.T) {
	t.Parallel()

	active := []match.Match{storedMatch("m1", "7", "Arsenal FC", "Liverpool FC", match.StatusScheduled)}
	items := []feed.Match{
		feedMatch("8", "Arsenal FC", "Liverpool FC", match.StatusFinished, intRef(3), intRef(3)),
		feedMatch("7", "Arsenal FC", "Liverpool FC", match.StatusLive, intRef(1), intRef(0)),
	}

	got := Reconcile(active, items, ReconcileOptions{})
	if len(got.Diffs) != 1 {
		t.Fatalf("unexpected diffs: %+v", got.Diffs)
	}
	diff := got.Diffs[0]
	if *diff.Status != match.StatusLive || diff.ExternalID != nil {
		t.Fatalf("expected id link to feed entry 7: %+v", diff)
	}
}

func TestReconcile_AmbiguousNamesAreNotLinked(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		active []match.Match
		items  []feed.Match
		diags  int
	}{
		{
			name:   "two feed entries share names",
			active: []match.Match{storedMatch("m1", "", "Arsenal FC", "Liverpool FC", match.StatusScheduled)},
			items: []feed.Match{
				feedMatch("1", "Arsenal FC", "Liverpool FC", match.StatusLive, intRef(0), intRef(0)),
				feedMatch("2", "Arsenal FC", "Liverpool FC", match.StatusScheduled, nil, nil),
			},
			diags: 1,
		},
		{
			name: "two local matches share names",
			active: []match.Match{
				storedMatch("m1", "", "Arsenal FC", "Liverpool FC", match.StatusScheduled),
				storedMatch("m2", "", "Arsenal FC", "Liverpool FC", match.StatusScheduled),
			},
			items: []feed.Match{feedMatch("1", "Arsenal FC", "Liverpool FC", match.StatusLive, intRef(0), intRef(0))},
			diags: 2,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Reconcile(tc.active, tc.items, ReconcileOptions{})
			if len(got.Diffs) != 0 {
				t.Fatalf("ambiguous link produced diffs: %+v", got.Diffs)
			}
			if len(got.Diagnostics) != tc.diags {
				t.Fatalf("unexpected diagnostics: got=%d want=%d", len(got.Diagnostics), tc.diags)
			}
			for _, diag := range got.Diagnostics {
				if diag.Kind != DiagnosticAmbiguousLink {
					t.Fatalf("unexpected diagnostic kind: got=%s", diag.Kind)
				}
			}
		})
	}
}

func TestReconcile_NoDataOnlyForStartedMatches(t *testing.T) {
	t.Parallel()

	active := []match.Match{
		storedMatch("live", "", "Arsenal FC", "Liverpool FC", match.StatusLive),
		storedMatch("later", "", "Chelsea FC", "Everton FC", match.StatusScheduled),
	}

	got := Reconcile(active, nil, ReconcileOptions{})
	if len(got.Diffs) != 0 {
		t.Fatalf("unexpected diffs: %+v", got.Diffs)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].MatchID != "live" || got.Diagnostics[0].Kind != DiagnosticNoData {
		t.Fatalf("unexpected diagnostics: %+v", got.Diagnostics)
	}
}

func TestReconcile_KickoffDrift(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		shift time.Duration
		diff  bool
	}{
		{name: "within tolerance", shift: 3 * time.Minute, diff: false},
		{name: "exactly tolerance", shift: 5 * time.Minute, diff: false},
		{name: "postponed an hour", shift: time.Hour, diff: true},
		{name: "brought forward", shift: -10 * time.Minute, diff: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			active := []match.Match{storedMatch("m1", "9", "A", "B", match.StatusScheduled)}
			item := feedMatch("9", "A", "B", match.StatusScheduled, nil, nil)
			item.KickoffAt = reconcileKickoff.Add(tc.shift)

			got := Reconcile(active, []feed.Match{item}, ReconcileOptions{})
			if (len(got.Diffs) == 1) != tc.diff {
				t.Fatalf("unexpected diff presence: got=%d want=%v", len(got.Diffs), tc.diff)
			}
			if tc.diff && !got.Diffs[0].ScheduledAt.Equal(item.KickoffAt) {
				t.Fatalf("unexpected kickoff: got=%s want=%s", got.Diffs[0].ScheduledAt, item.KickoffAt)
			}
		})
	}
}

func TestReconcile_TerminalStatusKeepsResult(t *testing.T) {
	t.Parallel()

	done := storedMatch("m1", "5", "A", "B", match.StatusFinished)
	done.HomeScore, done.AwayScore = intRef(2), intRef(1)

	got := Reconcile([]match.Match{done}, []feed.Match{feedMatch("5", "A", "B", match.StatusLive, intRef(3), intRef(1))}, ReconcileOptions{})
	if len(got.Diffs) != 0 {
		t.Fatalf("terminal match reopened: %+v", got.Diffs)
	}
}

func TestReconcile_FlagsFinishedTransition(t *testing.T) {
	t.Parallel()

	live := storedMatch("m1", "5", "A", "B", match.StatusLive)
	live.HomeScore, live.AwayScore = intRef(2), intRef(1)

	got := Reconcile([]match.Match{live}, []feed.Match{feedMatch("5", "A", "B", match.StatusFinished, intRef(2), intRef(1))}, ReconcileOptions{})
	if len(got.Diffs) != 1 {
		t.Fatalf("unexpected diffs: %+v", got.Diffs)
	}
	diff := got.Diffs[0]
	if !diff.EntersFinished || diff.HomeScore != nil {
		t.Fatalf("expected status-only finished transition: %+v", diff)
	}
	home, away, ok := FinalScore(live, diff)
	if !ok || home != 2 || away != 1 {
		t.Fatalf("unexpected final score: got=%d-%d ok=%v", home, away, ok)
	}
}
