package domain

// SettingsID is the fixed record id of the per-owner settings document.
const SettingsID = "settings"

// Settings is a free-form per-user preferences document.
type Settings struct {
	Record
	Values map[string]any `json:"values"`
}

func (s *Settings) Keys() IndexKeys { return IndexKeys{} }
