// internal/workers/mentoring/workload-report/handler.go
package workloadreport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mentor-matching/internal/common/errors"
	"mentor-matching/internal/common/logger"
	"mentor-matching/internal/common/metrics"
	"mentor-matching/internal/common/validation"
	"mentor-matching/internal/matching"
	"mentor-matching/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "mentor-workload-report"
)

type SnapshotSource interface {
	Load(ctx context.Context, q repository.SnapshotQuery) (*repository.Snapshot, error)
}

type Handler struct {
	config       *Config
	snapshots    SnapshotSource
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, snapshots SnapshotSource, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		snapshots:    snapshots,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	if err := validation.ValidateVariables(TaskType, job.Variables); err != nil {
		h.fail(ctx, client, job, errors.NewInputValidationError(err.Error()))
		return
	}
	var input Input
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.fail(ctx, client, job, errors.NewInputValidationError(fmt.Sprintf("parse input: %v", err)))
			return
		}
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	snap, err := h.snapshots.Load(ctx, repository.SnapshotQuery{
		MentorIDs:      input.MentorIDs,
		WithActivities: input.IncludeActivityHours,
	})
	if err != nil {
		return nil, err
	}

	tracker := matching.NewWorkloadTracker(snap.Mentors, snap.Ledger, snap.Activities)
	report := tracker.Report()

	out := &Output{
		Workload:        make([]matching.MentorWorkload, 0, len(report)),
		Mentors:         len(report),
		EligibleMentors: len(tracker.Eligible()),
		GeneratedAt:     h.now().UTC(),
	}
	for _, row := range report {
		if !row.Active && !input.IncludeInactive {
			continue
		}
		out.Workload = append(out.Workload, row)
		if row.Active {
			out.TotalAvailableSlots += row.AvailableSlots
		}
	}

	h.logger.Info("workload report built", map[string]interface{}{
		"mentors":             out.Mentors,
		"eligibleMentors":     out.EligibleMentors,
		"totalAvailableSlots": out.TotalAvailableSlots,
	})
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
