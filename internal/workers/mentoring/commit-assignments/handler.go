// internal/workers/mentoring/commit-assignments/handler.go
package commitassignments

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"mentor-matching/internal/common/errors"
	"mentor-matching/internal/common/events"
	"mentor-matching/internal/common/logger"
	"mentor-matching/internal/common/metrics"
	"mentor-matching/internal/common/validation"
	"mentor-matching/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "mentor-commit-assignments"
)

// Ledger is the write side of the capacity ledger.
type Ledger interface {
	CommittedAssignments(ctx context.Context, runID string) ([]string, error)
	Commit(ctx context.Context, runID string, records []repository.AssignmentRecord) (*repository.CommitResult, error)
}

type Handler struct {
	config       *Config
	ledger       Ledger
	publisher    events.Publisher
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	newEventID   func() string
	now          func() time.Time
}

func NewHandler(config *Config, ledger Ledger, publisher events.Publisher, log logger.Logger) *Handler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		ledger:       ledger,
		publisher:    publisher,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
		newEventID:   uuid.NewString,
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
	records, err := toRecords(input.Assignments)
	if err != nil {
		return nil, err
	}

	existing, err := h.ledger.CommittedAssignments(ctx, input.RunID)
	if err != nil {
		return nil, errors.NewLedgerReadFailedError(err)
	}

	output := &Output{RunID: input.RunID}
	if len(existing) > 0 {
		// A retry after a failed publish: the ledger already holds this run.
		h.logger.Warn("run already committed, skipping ledger write", map[string]interface{}{
			"runId":       input.RunID,
			"assignments": len(existing),
		})
		output.AlreadyCommitted = true
		output.AssignmentIDs = existing
	} else {
		result, err := h.ledger.Commit(ctx, input.RunID, records)
		if err != nil {
			return nil, h.commitError(err)
		}
		output.Inserted = result.Inserted
		output.AssignmentIDs = result.Assignments
		output.Workload = result.Workload
	}

	if h.config.PublishEvents {
		evt := events.Event{
			ID:         h.newEventID(),
			Type:       events.AssignmentsCommitted,
			RunID:      input.RunID,
			OccurredAt: h.now().UTC(),
			Payload:    CommittedEvent{Assignments: records, Workload: output.Workload},
		}
		if err := h.publisher.Publish(ctx, evt); err != nil {
			return nil, errors.NewEventPublishFailedError(err)
		}
		output.EventPublished = true
	}

	h.logger.Info("assignments committed", map[string]interface{}{
		"runId":            input.RunID,
		"inserted":         output.Inserted,
		"alreadyCommitted": output.AlreadyCommitted,
		"eventPublished":   output.EventPublished,
	})
	return output, nil
}

// toRecords orders assignments by fellow ID and checks each entry is keyed by
// its own fellow.
func toRecords(in map[string]AssignmentInput) ([]repository.AssignmentRecord, error) {
	fellows := make([]string, 0, len(in))
	for id := range in {
		fellows = append(fellows, id)
	}
	sort.Strings(fellows)

	records := make([]repository.AssignmentRecord, 0, len(in))
	for _, id := range fellows {
		a := in[id]
		if a.FellowID != id {
			return nil, errors.NewInputValidationError(
				fmt.Sprintf("assignment keyed %q carries fellowId %q", id, a.FellowID))
		}
		records = append(records, repository.AssignmentRecord{
			FellowID:  a.FellowID,
			MentorID:  a.MentorID,
			Score:     a.Score,
			IsPrimary: a.IsPrimary,
		})
	}
	return records, nil
}

func (h *Handler) commitError(err error) error {
	var capErr *repository.CapacityError
	if stderrors.As(err, &capErr) {
		available := capErr.Available
		if capErr.Inactive {
			available = 0
		}
		return errors.NewCapacityExceededError(capErr.MentorID, capErr.Requested, available).
			WithMetadata("inactive", capErr.Inactive)
	}
	var missing *repository.MissingProfilesError
	if stderrors.As(err, &missing) {
		return errors.NewInputValidationError(missing.Error())
	}
	return errors.NewLedgerWriteFailedError(err)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
