package model

// MonitorReader provides read-only access to a running monitor.
type MonitorReader interface {
	State() (MonitorState, error)
	Window(n int) ([]float64, error)
	Beats(n int) ([]Beat, error)
}

// MonitorController changes the signal mode. Unknown modes behave as inactive.
type MonitorController interface {
	Configure(active bool, mode string) error
}

// Monitor is the unified contract for local renderers, the service and the
// socket RPC client.
type Monitor interface {
	MonitorReader
	MonitorController
}

// EventWriter provides append-oriented writes for recorded events.
type EventWriter interface {
	InsertEventBatch(events []*Event) error
}

// EventQuerier provides read-only queries over recorded events.
type EventQuerier interface {
	RecentEvents(limit int) ([]Event, error)
	EventCounts() ([]EventCount, error)
	BeatStats() (BeatStats, error)
}

// SchemaQuerier provides schema introspection and arbitrary read-only queries.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// EventReader is the read contract for the HTTP API.
type EventReader interface {
	EventQuerier
	SchemaQuerier
}
