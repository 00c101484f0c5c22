package domain

// DefaultIntervalSeconds is the length of one work unit when none is set.
const DefaultIntervalSeconds = 25 * 60

// Task is a unit of work inside a project.
type Task struct {
	Record
	Name            string  `json:"name"`
	ProjectID       string  `json:"projectId"`
	ParentID        *string `json:"parentId"`
	Status          string  `json:"status"`
	Priority        int     `json:"priority"`
	EstimatedUnits  int     `json:"estimatedUnits"`
	ActualUnits     int     `json:"actualUnits"`
	IntervalSeconds int     `json:"intervalSeconds"`
}

func (t *Task) Keys() IndexKeys {
	k := IndexKeys{ProjectID: t.ProjectID}
	if t.ParentID != nil {
		k.ParentID = *t.ParentID
	}
	return k
}

// Normalize enforces IntervalSeconds > 0.
func (t *Task) Normalize() {
	if t.IntervalSeconds <= 0 {
		t.IntervalSeconds = DefaultIntervalSeconds
	}
	if t.Status == "" {
		t.Status = "todo"
	}
}
