package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultAssignment ResultType = "assignment"
	ResultPerson     ResultType = "person"
	ResultSlot       ResultType = "slot"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Person  string     `json:"person,omitempty"`
	SlotID  string     `json:"slotId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterSlotID string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexAssignment(a AssignmentRecord) error
	IndexPerson(p PersonRecord) error
	IndexSlot(s SlotRecord) error
	DeleteAssignment(id string) error
	DeletePerson(id string) error
	DeleteSlot(id string) error
}

// AssignmentRecord is the data we index for one cell's worth of tasks.
// ID is the cell's write key, "{person}-{slotId}".
type AssignmentRecord struct {
	ID        string `json:"id"`
	Person    string `json:"person"`
	SlotID    string `json:"slotId"`
	SlotLabel string `json:"slotLabel"`
	Tasks     string `json:"tasks"`
	Note      string `json:"note"`
}

// PersonRecord is the data we index for a roster member.
type PersonRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SlotRecord is the data we index for a shift column.
type SlotRecord struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	TimeRange string `json:"timeRange"`
}
