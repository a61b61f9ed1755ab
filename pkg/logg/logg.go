package logg

// Shared structured-log field names so log queries stay consistent
// across layers.
const (
	Layer     = "layer"
	Operation = "operation"
	SessionID = "session_id"
	Action    = "action"
	Selector  = "selector"
	URL       = "url"
	Step      = "step"
	Goal      = "goal"
)
