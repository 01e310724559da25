//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor-matching/internal/common/config"
	"mentor-matching/internal/common/database"
	"mentor-matching/internal/common/events"
	"mentor-matching/internal/common/logger"
	"mentor-matching/internal/matching"
	"mentor-matching/internal/repository"
	"mentor-matching/internal/testutil"
	assignprimary "mentor-matching/internal/workers/mentoring/assign-primary"
	commitassignments "mentor-matching/internal/workers/mentoring/commit-assignments"
	rankcandidates "mentor-matching/internal/workers/mentoring/rank-candidates"
	workloadreport "mentor-matching/internal/workers/mentoring/workload-report"
)

const cohortYear = 2099

var (
	cfg *config.Config
	pg  *database.PostgresClient
	rdb *database.RedisClient
)

// TestMain needs the docker-compose stack: Postgres and Redis reachable with
// the settings in configs/config.yaml.
func TestMain(m *testing.M) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	pg, err = database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to open Postgres: %v\n", err)
		os.Exit(1)
	}
	rdb = database.NewRedis(cfg.Database.Redis)

	code := m.Run()

	rdb.Close()
	pg.Close()
	os.Exit(code)
}

type fixture struct {
	log      logger.Logger
	loader   *repository.SnapshotLoader
	ledger   *repository.LedgerStore
	profiles *repository.CachedProfiles
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	assertServicesConnectivity(ctx, t)
	require.NoError(t, repository.EnsureSchema(ctx, pg.DB))
	seedCohort(ctx, t)
	t.Cleanup(func() { cleanupCohort(t) })

	log := logger.NewTestLogger(t)
	profiles := repository.NewCachedProfiles(
		repository.NewProfileStore(pg.DB),
		repository.NewSnapshotCache(rdb.Client, 5*time.Second),
		log,
	)
	ledger := repository.NewLedgerStore(pg.DB)
	fx := &fixture{
		log:      log,
		loader:   repository.NewSnapshotLoader(profiles, ledger),
		ledger:   ledger,
		profiles: profiles,
	}

	var assigned *assignprimary.Output
	t.Run("rank-candidates", func(t *testing.T) { testRankCandidates(ctx, t, fx) })
	t.Run("assign-primary", func(t *testing.T) { assigned = testAssignPrimary(ctx, t, fx) })
	t.Run("commit-assignments", func(t *testing.T) { testCommitAssignments(ctx, t, fx, assigned) })
	t.Run("workload-report", func(t *testing.T) { testWorkloadReport(ctx, t, fx) })
}

func assertServicesConnectivity(ctx context.Context, t *testing.T) {
	t.Helper()
	require.NoError(t, pg.Ping(ctx), "Postgres must be reachable")
	require.NoError(t, rdb.Ping(ctx), "Redis must be reachable")
	t.Log("✅ Postgres and Redis reachable")
}

func seedCohort(ctx context.Context, t *testing.T) {
	t.Helper()
	cleanupCohort(t)

	fellows := []struct {
		id        string
		interests []string
		skills    []string
	}{
		{"e2e-f1", []string{"memory", "attention"}, []string{"python"}},
		{"e2e-f2", []string{"vision"}, []string{"matlab"}},
		{"e2e-f3", []string{"language"}, []string{}},
	}
	for _, f := range fellows {
		_, err := pg.DB.ExecContext(ctx,
			`INSERT INTO fellows (id, cohort_year, interests, skills) VALUES ($1, $2, $3, $4)`,
			f.id, cohortYear, pq.Array(f.interests), pq.Array(f.skills))
		require.NoError(t, err)
	}

	mentors := []struct {
		id          string
		affiliation string
		expertise   []string
		keywords    []string
		capacity    int
	}{
		{"e2e-m1", "Princeton Neuroscience Institute", []string{"python"}, []string{"memory", "attention"}, 2},
		{"e2e-m2", "State College", []string{"matlab"}, []string{"vision"}, 1},
	}
	for _, m := range mentors {
		_, err := pg.DB.ExecContext(ctx, `
			INSERT INTO mentors (id, name, affiliation, expertise, keywords, max_capacity, active)
			VALUES ($1, $1, $2, $3, $4, $5, TRUE)`,
			m.id, m.affiliation, pq.Array(m.expertise), pq.Array(m.keywords), m.capacity)
		require.NoError(t, err)
	}

	_, err := pg.DB.ExecContext(ctx, `
		INSERT INTO mentor_activities (mentor_id, fellow_id, activity_type, activity_date, duration_hours)
		VALUES ('e2e-m1', 'e2e-f1', 'meeting', NOW(), 1.5)`)
	require.NoError(t, err)
}

func cleanupCohort(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range []string{
		`DELETE FROM mentor_assignments WHERE fellow_id LIKE 'e2e-%'`,
		`DELETE FROM mentor_activities WHERE mentor_id LIKE 'e2e-%'`,
		`DELETE FROM mentor_workload WHERE mentor_id LIKE 'e2e-%'`,
		`DELETE FROM mentors WHERE id LIKE 'e2e-%'`,
		`DELETE FROM fellows WHERE id LIKE 'e2e-%'`,
	} {
		if _, err := pg.DB.ExecContext(ctx, stmt); err != nil {
			t.Logf("cleanup %q: %v", stmt, err)
		}
	}
	_ = rdb.Client.FlushDB(ctx).Err()
}

func newMatcher() *matching.Matcher {
	return matching.NewMatcher(matching.ScorerConfig{
		PrestigeAffiliations: cfg.Matching.PrestigeAffiliations,
		CultureMarkers:       cfg.Matching.CultureMarkers,
	})
}

func testRankCandidates(ctx context.Context, t *testing.T, fx *fixture) {
	handler := rankcandidates.NewHandler(&rankcandidates.Config{
		Timeout:     10 * time.Second,
		DefaultTopK: 2,
		MaxPoolSize: cfg.Matching.MaxPoolSize,
	}, fx.loader, nil, newMatcher(), nil, fx.log)

	client := testutil.NewFakeJobClient()
	job, err := testutil.NewJob(1, rankcandidates.TaskType, 3, map[string]interface{}{
		"fellowId":  "e2e-f1",
		"mentorIds": []string{"e2e-m1", "e2e-m2"},
	})
	require.NoError(t, err)

	handler.Handle(client, job)

	completed := client.Gateway.Completed()
	require.Len(t, completed, 1, "job should complete")
	var out rankcandidates.Output
	require.NoError(t, json.Unmarshal([]byte(completed[0].Variables), &out))
	require.Len(t, out.Shortlist, 2)
	assert.Equal(t, "e2e-m1", out.Shortlist[0].MentorID)
	assert.False(t, out.NoEligibleMentors)
	t.Logf("✅ rank-candidates: top mentor %s (%.1f)", out.Shortlist[0].MentorID, out.Shortlist[0].Score)
}

func testAssignPrimary(ctx context.Context, t *testing.T, fx *fixture) *assignprimary.Output {
	handler := assignprimary.NewHandler(&assignprimary.Config{
		Timeout:       10 * time.Second,
		MaxCohortSize: cfg.Matching.MaxCohortSize,
	}, fx.loader, newMatcher(), nil, fx.log)

	out, err := handler.Execute(ctx, &assignprimary.Input{
		CohortYear: cohortYear,
		MentorIDs:  []string{"e2e-m1", "e2e-m2"},
	})
	require.NoError(t, err)

	assert.Len(t, out.Assignments, 2, "two mentors can take two of three fellows")
	assert.Len(t, out.Unmatched, 1)
	assert.Equal(t, "e2e-m1", out.Assignments["e2e-f1"].MentorID)
	assert.Equal(t, "e2e-m2", out.Assignments["e2e-f2"].MentorID)
	t.Logf("✅ assign-primary: run %s, total score %.1f", out.RunID, out.TotalScore)
	return out
}

func testCommitAssignments(ctx context.Context, t *testing.T, fx *fixture, assigned *assignprimary.Output) {
	require.NotNil(t, assigned, "assign-primary must run first")

	handler := commitassignments.NewHandler(&commitassignments.Config{
		Timeout:       10 * time.Second,
		PublishEvents: false,
	}, fx.ledger, events.NoopPublisher{}, fx.log)

	input := &commitassignments.Input{
		RunID:       assigned.RunID,
		Assignments: map[string]commitassignments.AssignmentInput{},
	}
	for fellowID, m := range assigned.Assignments {
		input.Assignments[fellowID] = commitassignments.AssignmentInput{
			FellowID:  fellowID,
			MentorID:  m.MentorID,
			Score:     m.Score,
			IsPrimary: true,
		}
	}

	out, err := handler.Execute(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Inserted)
	assert.False(t, out.AlreadyCommitted)

	// A redelivered job must not double count load.
	again, err := handler.Execute(ctx, input)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCommitted)
	assert.ElementsMatch(t, out.AssignmentIDs, again.AssignmentIDs)

	var load int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT current_load FROM mentor_workload WHERE mentor_id = 'e2e-m2'`).Scan(&load))
	assert.Equal(t, 1, load)

	// e2e-m2 is now full; a second run assigning it again must be rejected whole.
	_, err = handler.Execute(ctx, &commitassignments.Input{
		RunID: "0b0c6f1e-2a3d-4e5f-8a9b-1c2d3e4f5a6b",
		Assignments: map[string]commitassignments.AssignmentInput{
			"e2e-f3": {FellowID: "e2e-f3", MentorID: "e2e-m2", Score: 10, IsPrimary: true},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAPACITY_EXCEEDED")
	t.Log("✅ commit-assignments: committed once, capacity enforced")
}

func testWorkloadReport(ctx context.Context, t *testing.T, fx *fixture) {
	handler := workloadreport.NewHandler(&workloadreport.Config{Timeout: 10 * time.Second}, fx.loader, fx.log)

	out, err := handler.Execute(ctx, &workloadreport.Input{
		MentorIDs:            []string{"e2e-m1", "e2e-m2"},
		IncludeActivityHours: true,
	})
	require.NoError(t, err)

	require.Len(t, out.Workload, 2)
	byID := map[string]matching.MentorWorkload{}
	for _, w := range out.Workload {
		byID[w.MentorID] = w
	}
	assert.Equal(t, 1, byID["e2e-m1"].CurrentLoad)
	assert.Equal(t, 1, byID["e2e-m1"].AvailableSlots)
	assert.InDelta(t, 1.5, byID["e2e-m1"].ActivityHours, 1e-9)
	assert.Equal(t, 0, byID["e2e-m2"].AvailableSlots)
	assert.Equal(t, 1, out.EligibleMentors)
	t.Log("✅ workload-report: ledger reflects committed run")
}

