package domain

// SystemEntry describes one structural project the UI cannot render without.
type SystemEntry struct {
	ID      string
	Name    string
	TypeTag int
	Color   string
}

// Catalogue is the fixed set of structural projects. Order matters: it is the
// sort key the seeder assigns.
var Catalogue = []SystemEntry{
	{ID: "today", Name: "Today", TypeTag: 1, Color: "#f5a623"},
	{ID: "tomorrow", Name: "Tomorrow", TypeTag: 2, Color: "#f8e71c"},
	{ID: "week", Name: "This Week", TypeTag: 3, Color: "#7ed321"},
	{ID: "planned", Name: "Planned", TypeTag: 4, Color: "#4a90e2"},
	{ID: "someday", Name: "Someday", TypeTag: 5, Color: "#9013fe"},
	{ID: "overdue", Name: "Overdue", TypeTag: 6, Color: "#d0021b"},
	{ID: "nodate", Name: "No Date", TypeTag: 7, Color: "#9b9b9b"},
	{ID: "inbox", Name: "Inbox", TypeTag: 1000, Color: "#50e3c2"},
	{ID: "all", Name: "All", TypeTag: 1001, Color: "#4a4a4a"},
	{ID: "completed", Name: "Completed", TypeTag: 1002, Color: "#417505"},
	{ID: "history", Name: "History", TypeTag: 1003, Color: "#8b572a"},
	{ID: "trash", Name: "Trash", TypeTag: 1004, Color: "#b8b8b8"},
	{ID: "focus", Name: "Focus", TypeTag: 1005, Color: "#e94e3c"},
	{ID: "statistics", Name: "Statistics", TypeTag: 1006, Color: "#bd10e0"},
	{ID: "tags", Name: "Tags", TypeTag: 1007, Color: "#f5a623"},
	{ID: "filters", Name: "Filters", TypeTag: 1008, Color: "#7b8d9e"},
	{ID: "calendar", Name: "Calendar", TypeTag: 1009, Color: "#2d9cdb"},
	{ID: "archived", Name: "Archived", TypeTag: 1010, Color: "#6d6d6d"},
}

var catalogueByID = func() map[string]SystemEntry {
	m := make(map[string]SystemEntry, len(Catalogue))
	for _, e := range Catalogue {
		m[e.ID] = e
	}
	return m
}()

// IsSystemID reports whether id belongs to the structural catalogue.
func IsSystemID(id string) bool {
	_, ok := catalogueByID[id]
	return ok
}

// SystemEntryByID looks up a catalogue entry.
func SystemEntryByID(id string) (SystemEntry, bool) {
	e, ok := catalogueByID[id]
	return e, ok
}

// NewSystemProject builds the default record for a catalogue entry.
// Statistics are zeroed explicitly so consumers never see missing counters.
func NewSystemProject(e SystemEntry, order int) Project {
	return Project{
		Record: Record{
			ID:    e.ID,
			State: StateActive,
			Order: float64(order),
		},
		Name:           e.Name,
		Color:          e.Color,
		Kind:           KindSystem,
		TypeTag:        e.TypeTag,
		TaskCount:      0,
		CompletedCount: 0,
		FocusSeconds:   0,
	}
}

// WithSystemProjects returns projects plus every catalogue entry missing from
// it. The input slice is not modified.
func WithSystemProjects(projects []Project) []Project {
	present := make(map[string]bool, len(projects))
	for _, p := range projects {
		present[p.ID] = true
	}
	out := append([]Project(nil), projects...)
	for i, e := range Catalogue {
		if !present[e.ID] {
			out = append(out, NewSystemProject(e, i))
		}
	}
	return out
}
