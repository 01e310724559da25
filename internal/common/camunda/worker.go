// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"mentor-matching/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobHandler is implemented by every worker handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// StartWorker opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func (c *Client) StartWorker(taskType string, wcfg config.WorkerConfig, handler JobHandler) worker.JobWorker {
	if !wcfg.Enabled {
		c.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := c.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	c.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}
