// internal/workers/mentoring/rank-candidates/handler.go
package rankcandidates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mentor-matching/internal/common/errors"
	"mentor-matching/internal/common/logger"
	"mentor-matching/internal/common/metrics"
	"mentor-matching/internal/common/observability"
	"mentor-matching/internal/common/validation"
	"mentor-matching/internal/matching"
	"mentor-matching/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "mentor-rank-candidates"
)

// SnapshotSource loads the profiles and ledger of one run.
type SnapshotSource interface {
	Load(ctx context.Context, q repository.SnapshotQuery) (*repository.Snapshot, error)
}

// MentorSearcher narrows the mentor pool by label overlap.
type MentorSearcher interface {
	Search(ctx context.Context, labels []string, size int) ([]string, error)
}

type Handler struct {
	config       *Config
	snapshots    SnapshotSource
	search       MentorSearcher
	matcher      *matching.Matcher
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	newRunID     func() string
}

// NewHandler builds the handler. search may be nil, in which case the
// prefilter flag is ignored.
func NewHandler(config *Config, snapshots SnapshotSource, search MentorSearcher, matcher *matching.Matcher, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = &observability.Observability{}
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		snapshots:    snapshots,
		search:       search,
		matcher:      matcher,
		obs:          obs,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
		newRunID:     uuid.NewString,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("jobKey", job.Key))
	defer span.End()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	if err := validation.ValidateVariables(TaskType, job.Variables); err != nil {
		return nil, errors.NewInputValidationError(err.Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewInputValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	k := input.K
	if k == 0 {
		k = h.config.DefaultTopK
	}

	query := repository.SnapshotQuery{MentorIDs: input.MentorIDs}
	if input.Fellow == nil {
		query.FellowIDs = []string{input.FellowID}
	}

	snap, err := h.snapshots.Load(ctx, query)
	if err != nil {
		metrics.MatchRuns.WithLabelValues(string(matching.ModeGreedyTopK), metrics.OutcomeStoreError).Inc()
		return nil, err
	}
	if input.Fellow != nil {
		snap.Fellows = []matching.FellowProfile{*input.Fellow}
	}

	if input.UseSearchPrefilter && h.search != nil && len(snap.Fellows) == 1 {
		ids, err := h.prefilter(ctx, snap.Fellows[0])
		switch {
		case err != nil:
			h.logger.Warn("mentor index query failed, scoring full pool", map[string]interface{}{
				"fellowId": snap.Fellows[0].ID,
				"error":    err.Error(),
			})
		case len(ids) > 0:
			snap.Mentors = keepMentors(snap.Mentors, ids)
		default:
			h.logger.Warn("mentor index returned no candidates, scoring full pool", map[string]interface{}{
				"fellowId": snap.Fellows[0].ID,
			})
		}
	}

	result, err := h.matcher.Run(snap.Request(matching.ModeGreedyTopK, k))
	if err != nil {
		metrics.MatchRuns.WithLabelValues(string(matching.ModeGreedyTopK), metrics.OutcomeRejected).Inc()
		return nil, errors.NewInvalidMatchModeError(err)
	}

	fellowID := input.FellowID
	if input.Fellow != nil {
		fellowID = input.Fellow.ID
	}
	output, err := h.buildOutput(fellowID, result)
	if err != nil {
		return nil, err
	}

	outcome := metrics.OutcomeMatched
	if result.NoEligibleMentors {
		outcome = metrics.OutcomeNoMentors
	}
	metrics.MatchRuns.WithLabelValues(string(result.Mode), outcome).Inc()
	for _, m := range output.Shortlist {
		metrics.MatchScore.WithLabelValues(string(result.Mode)).Observe(m.Score)
	}
	h.obs.RecordRun(ctx, string(result.Mode), outcome, result.Stats.EligibleMentors, time.Since(start))

	h.logger.Info("candidates ranked", map[string]interface{}{
		"runId":           output.RunID,
		"fellowId":        fellowID,
		"k":               k,
		"eligibleMentors": result.Stats.EligibleMentors,
		"shortlisted":     len(output.Shortlist),
		"durationMs":      time.Since(start).Milliseconds(),
	})

	return output, nil
}

// prefilter asks the mentor index for active mentors sharing a label with
// the fellow. The scorer still ranks whatever survives. Callers fall back to
// the full pool on any error.
func (h *Handler) prefilter(ctx context.Context, fellow matching.FellowProfile) ([]string, error) {
	labels := fellow.Interests.Union(fellow.Skills)
	ids, err := h.search.Search(ctx, labels, h.config.MaxPoolSize)
	if err != nil {
		return nil, errors.NewMentorSearchFailedError(err)
	}
	return ids, nil
}

func keepMentors(mentors []matching.MentorProfile, ids []string) []matching.MentorProfile {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make([]matching.MentorProfile, 0, len(ids))
	for _, m := range mentors {
		if _, ok := keep[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (h *Handler) buildOutput(fellowID string, result *matching.Result) (*Output, error) {
	digest, err := matching.Fingerprint(result)
	if err != nil {
		return nil, errors.NewSolverFailedError(err)
	}
	shortlist := result.Shortlists[fellowID]
	if shortlist == nil {
		shortlist = []matching.Match{}
	}
	return &Output{
		RunID:             h.newRunID(),
		FellowID:          fellowID,
		Mode:              result.Mode,
		Shortlist:         shortlist,
		NoEligibleMentors: result.NoEligibleMentors,
		Stats:             result.Stats,
		Digest:            digest,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
