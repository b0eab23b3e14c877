package splunk

// REST payloads for the splunkd search/jobs API, trimmed to the fields
// the importer consumes.

// JobHandle identifies a dispatched search job.
type JobHandle struct {
	SID string `json:"sid"`
}

// Message is a search-level message attached to a job (errors, warnings).
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// jobStatusContent carries the job state reported under entry[].content.
type jobStatusContent struct {
	SID           string  `json:"sid"`
	IsDone        bool    `json:"isDone"`
	IsFailed      bool    `json:"isFailed"`
	DispatchState string  `json:"dispatchState"`
	DoneProgress  float64 `json:"doneProgress"`
	ResultCount   int     `json:"resultCount"`
	RunDuration   float64 `json:"runDuration"`
}

type jobStatusEntry struct {
	Name    string           `json:"name"`
	ID      string           `json:"id"`
	Content jobStatusContent `json:"content"`
}

type jobStatusResponse struct {
	Entry    []jobStatusEntry `json:"entry"`
	Messages []Message        `json:"messages"`
}

// resultsResponse is the output_mode=json shape of /results.
type resultsResponse struct {
	Preview    bool      `json:"preview"`
	InitOffset int       `json:"init_offset"`
	Messages   []Message `json:"messages"`
	Fields     []struct {
		Name string `json:"name"`
	} `json:"fields"`
	Results []map[string]interface{} `json:"results"`
}

// JobResult is the completed outcome of one search job.
type JobResult struct {
	SID         string
	ResultCount int
	Fields      []string
	Results     []map[string]interface{}
	Messages    []Message
}

// FirstString returns the named field of the first result row as a
// string, or "" when absent. Splunk serializes stats output as strings,
// so this covers the metadata queries the importer runs.
func (r *JobResult) FirstString(field string) string {
	if len(r.Results) == 0 {
		return ""
	}
	if v, ok := r.Results[0][field].(string); ok {
		return v
	}
	return ""
}
