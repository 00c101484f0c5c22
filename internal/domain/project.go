package domain

// ProjectKind separates user projects from structural system entities.
type ProjectKind string

const (
	KindRegular ProjectKind = "regular"
	KindSystem  ProjectKind = "system"
)

// Project is a user project or a structural system view.
type Project struct {
	Record
	Name     string      `json:"name"`
	Color    string      `json:"color"`
	ParentID *string     `json:"parentId"`
	Kind     ProjectKind `json:"kind"`
	// TypeTag is the discriminator the UI switches on.
	TypeTag int `json:"typeTag"`

	// Statistics are derived counters; seeded records start at zero.
	TaskCount      int `json:"taskCount"`
	CompletedCount int `json:"completedCount"`
	FocusSeconds   int `json:"focusSeconds"`
}

func (p *Project) Keys() IndexKeys {
	k := IndexKeys{}
	if p.ParentID != nil {
		k.ParentID = *p.ParentID
	}
	return k
}
