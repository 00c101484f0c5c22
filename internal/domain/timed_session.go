package domain

import "encoding/json"

// Session statuses understood by the validation firewall.
const (
	SessionCompleted = "completed"
	SessionActive    = "active"
	SessionRunning   = "running"
	SessionPaused    = "paused"
	SessionCancelled = "cancelled"
	SessionTodo      = "todo"
	SessionAbandoned = "abandoned"
)

// TimedSession is one focus ("pomodoro") interval worked on a task.
// StartTime and EndTime are epoch milliseconds, Duration is milliseconds.
type TimedSession struct {
	Record
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Duration  int64  `json:"duration"`
}

func (s *TimedSession) Keys() IndexKeys {
	return IndexKeys{TaskID: s.TaskID}
}

// legacySession carries the fields of the old creation/interval schema.
type legacySession struct {
	CreatedTime int64 `json:"createdTime"`
	Interval    int64 `json:"interval"`
}

// UnmarshalJSON accepts both the canonical start/end/duration shape and the
// legacy createdTime/interval shape. Legacy rows are migrated on decode:
// createdTime is when the interval finished, interval is in seconds.
func (s *TimedSession) UnmarshalJSON(data []byte) error {
	type canonical TimedSession
	var c canonical
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*s = TimedSession(c)
	if s.StartTime != 0 || s.EndTime != 0 || s.Duration != 0 {
		return nil
	}
	var legacy legacySession
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	if legacy.CreatedTime > 0 && legacy.Interval > 0 {
		s.Duration = legacy.Interval * 1000
		s.EndTime = legacy.CreatedTime
		s.StartTime = legacy.CreatedTime - s.Duration
	}
	return nil
}
