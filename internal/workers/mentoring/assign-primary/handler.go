// internal/workers/mentoring/assign-primary/handler.go
package assignprimary

import (
	"context"
	"encoding/json"
	stderrors "errors"
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
	TaskType = "mentor-assign-primary"
)

type SnapshotSource interface {
	Load(ctx context.Context, q repository.SnapshotQuery) (*repository.Snapshot, error)
}

type Handler struct {
	config       *Config
	snapshots    SnapshotSource
	matcher      *matching.Matcher
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	newRunID     func() string
}

func NewHandler(config *Config, snapshots SnapshotSource, matcher *matching.Matcher, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = &observability.Observability{}
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		snapshots:    snapshots,
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
	mode := string(matching.ModeGlobalOptimal)

	snap, err := h.snapshots.Load(ctx, repository.SnapshotQuery{
		FellowIDs:  input.FellowIDs,
		CohortYear: input.CohortYear,
		MentorIDs:  input.MentorIDs,
	})
	if err != nil {
		metrics.MatchRuns.WithLabelValues(mode, metrics.OutcomeStoreError).Inc()
		return nil, err
	}

	if h.config.MaxCohortSize > 0 && len(snap.Fellows) > h.config.MaxCohortSize {
		metrics.MatchRuns.WithLabelValues(mode, metrics.OutcomeRejected).Inc()
		return nil, errors.NewInputValidationError(
			fmt.Sprintf("cohort of %d fellows exceeds limit %d", len(snap.Fellows), h.config.MaxCohortSize))
	}

	result, err := h.matcher.Run(snap.Request(matching.ModeGlobalOptimal, 0))
	if err != nil {
		metrics.MatchRuns.WithLabelValues(mode, metrics.OutcomeRejected).Inc()
		if stderrors.Is(err, matching.ErrInvalidRequest) {
			return nil, errors.NewInvalidMatchModeError(err)
		}
		return nil, errors.NewSolverFailedError(err)
	}

	if result.Stats.Fellows > result.Stats.EligibleMentors {
		h.logger.Warn("fellows outnumber eligible mentors, some will stay unmatched", map[string]interface{}{
			"fellows":         result.Stats.Fellows,
			"eligibleMentors": result.Stats.EligibleMentors,
		})
	}

	if result.NoEligibleMentors && input.FailOnNoEligibleMentors && result.Stats.Fellows > 0 {
		metrics.MatchRuns.WithLabelValues(mode, metrics.OutcomeNoMentors).Inc()
		return nil, errors.NewNoEligibleMentorsError(
			fmt.Sprintf("%d mentors loaded, none active with free capacity", result.Stats.Mentors))
	}

	digest, err := matching.Fingerprint(result)
	if err != nil {
		return nil, errors.NewSolverFailedError(err)
	}

	assignments := result.Assignments
	if assignments == nil {
		assignments = map[string]matching.Match{}
	}
	output := &Output{
		RunID:             h.newRunID(),
		Mode:              result.Mode,
		Assignments:       assignments,
		Unmatched:         result.Unmatched,
		NoEligibleMentors: result.NoEligibleMentors,
		TotalScore:        result.Stats.TotalScore,
		Stats:             result.Stats,
		Digest:            digest,
	}

	outcome := metrics.OutcomeMatched
	switch {
	case result.NoEligibleMentors:
		outcome = metrics.OutcomeNoMentors
	case len(result.Unmatched) > 0:
		outcome = metrics.OutcomePartial
	}
	metrics.MatchRuns.WithLabelValues(mode, outcome).Inc()
	metrics.UnmatchedFellows.WithLabelValues(mode).Observe(float64(len(result.Unmatched)))
	for _, m := range assignments {
		metrics.MatchScore.WithLabelValues(mode).Observe(m.Score)
	}
	h.obs.RecordRun(ctx, mode, outcome, result.Stats.EligibleMentors, time.Since(start))

	h.logger.Info("primary mentors assigned", map[string]interface{}{
		"runId":           output.RunID,
		"mode":            mode,
		"fellows":         result.Stats.Fellows,
		"eligibleMentors": result.Stats.EligibleMentors,
		"assigned":        len(assignments),
		"unmatched":       len(result.Unmatched),
		"totalScore":      result.Stats.TotalScore,
		"durationMs":      time.Since(start).Milliseconds(),
	})

	return output, nil
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
