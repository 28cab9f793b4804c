package reconcile

// Mode is the interaction mode of a session. It is exactly one of Idle,
// Changing, or ResolvingConflict.
type Mode interface {
	String() string
	isMode()
}

// Idle means no column is being edited and no conflict is open.
type Idle struct{}

// Changing means the review surface is showing the field picker for Header.
type Changing struct {
	Header string
}

// ResolvingConflict means a duplicate assignment is awaiting a decision.
// No other assignment may be committed until it is resolved or cancelled.
type ResolvingConflict struct {
	Conflict *DuplicationConflict
}

func (Idle) String() string              { return "idle" }
func (m Changing) String() string        { return "changing " + m.Header }
func (ResolvingConflict) String() string { return "resolving conflict" }

func (Idle) isMode()              {}
func (Changing) isMode()          {}
func (ResolvingConflict) isMode() {}

// DuplicationConflict is an attempt to assign a field that another column
// already holds. HeaderA is the incumbent, HeaderB the requester.
type DuplicationConflict struct {
	Field    TargetField `json:"field"`
	HeaderA  string      `json:"header_a"`
	HeaderB  string      `json:"header_b"`
	PreviewA []string    `json:"preview_a"`
	PreviewB []string    `json:"preview_b"`
	// Selected is empty until SelectHeaderToResolve is called.
	Selected string `json:"selected,omitempty"`
}

// Other returns the header of the two that is not h.
func (c *DuplicationConflict) Other(h string) string {
	if h == c.HeaderA {
		return c.HeaderB
	}
	return c.HeaderA
}

func (c *DuplicationConflict) involves(h string) bool {
	return h == c.HeaderA || h == c.HeaderB
}
