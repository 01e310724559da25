// pkg/registry/schema.go
package registry

// TaskRegistry is the catalogue of job types served by worker-manager.
type TaskRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Tasks       []Task `json:"tasks"`
}

type Task struct {
	TaskType    string   `json:"taskType"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Worker      string   `json:"worker"` // key under workers: in config.yaml
	Mode        string   `json:"mode,omitempty"`
	Timeout     string   `json:"timeout"`
	Retries     int      `json:"retries"`
	ErrorCodes  []string `json:"errorCodes"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
	Tags        []string `json:"tags,omitempty"`
}
