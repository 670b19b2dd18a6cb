package dispatch

// Result is the outcome for one token. MessageID is set iff Success; Error iff not.
type Result struct {
	Token     string `json:"token"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendResult is the aggregate returned by every multicast send.
type SendResult struct {
	Success     bool     `json:"success"`
	TotalSent   int      `json:"totalSent"`
	TotalFailed int      `json:"totalFailed"`
	Results     []Result `json:"results"`
}

// TopicResult is the single aggregate outcome of a topic send.
type TopicResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summarize counts a result ledger. Success reports that the dispatch ran;
// per-token failures are carried in TotalFailed and Results.
func Summarize(results []Result) SendResult {
	out := SendResult{Success: true, Results: results}
	if out.Results == nil {
		out.Results = []Result{}
	}
	for _, r := range results {
		if r.Success {
			out.TotalSent++
		} else {
			out.TotalFailed++
		}
	}
	return out
}

// Counts mirrors Summarize for a topic send.
func (t TopicResult) Counts() (sent, failed int) {
	if t.Success {
		return 1, 0
	}
	return 0, 1
}
