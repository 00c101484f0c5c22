package dto

import "Tempo/internal/domain"

// Timestamps on the sync contract (syncTime, timestamp) are epoch milliseconds.

type SyncProjectsRequest struct {
	Projects []domain.Project `json:"projects"`
}

type SyncProjectsResponse struct {
	Success  bool             `json:"success"`
	Projects []domain.Project `json:"projects"`
	SyncTime int64            `json:"syncTime"`
}

type SyncTasksRequest struct {
	Tasks []domain.Task `json:"tasks"`
}

type SyncTasksResponse struct {
	Success  bool          `json:"success"`
	Tasks    []domain.Task `json:"tasks"`
	SyncTime int64         `json:"syncTime"`
}

type SyncLogsRequest struct {
	Logs []domain.TimedSession `json:"logs"`
}

type SyncLogsResponse struct {
	Success       bool                  `json:"success"`
	Logs          []domain.TimedSession `json:"logs"`
	SyncedCount   int                   `json:"syncedCount"`
	RejectedCount int                   `json:"rejectedCount"`
	RejectedIDs   []string              `json:"rejectedIds,omitempty"`
	SyncTime      int64                 `json:"syncTime"`
}

type SyncSettingsRequest struct {
	Settings domain.Settings `json:"settings"`
}

type SyncSettingsResponse struct {
	Success  bool            `json:"success"`
	Settings domain.Settings `json:"settings"`
}

// LoadData is the full server snapshot for one user.
type LoadData struct {
	Projects     []domain.Project      `json:"projects"`
	Tasks        []domain.Task         `json:"tasks"`
	PomodoroLogs []domain.TimedSession `json:"pomodoroLogs"`
	Settings     *domain.Settings      `json:"settings"`
	User         UserResponse          `json:"user"`
}

type LoadResponse struct {
	Success bool     `json:"success"`
	Data    LoadData `json:"data"`
}

type SyncAllRequest struct {
	Projects     []domain.Project      `json:"projects"`
	Tasks        []domain.Task         `json:"tasks"`
	PomodoroLogs []domain.TimedSession `json:"pomodoroLogs"`
	Settings     *domain.Settings      `json:"settings"`
}

type SyncAllResponse struct {
	Success         bool     `json:"success"`
	ProjectsSynced  int      `json:"projectsSynced"`
	TasksSynced     int      `json:"tasksSynced"`
	LogsSynced      int      `json:"logsSynced"`
	LogsRejected    int      `json:"logsRejected"`
	LogsRejectedIDs []string `json:"logsRejectedIds,omitempty"`
	SettingsSynced  bool     `json:"settingsSynced"`
	Timestamp       int64    `json:"timestamp"`
}

// LegacySyncResponse is the combined answer of the legacy bridging endpoint:
// the push counts plus a snapshot that always holds the full system catalogue.
type LegacySyncResponse struct {
	SyncAllResponse
	Data LoadData `json:"data"`
}
