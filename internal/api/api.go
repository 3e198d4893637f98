// Package api defines the JSON bodies exchanged with the analysis server.
package api

const (
	PathHealth  = "/health"
	PathAnalyze = "/analyze"
	PathMetrics = "/metrics"

	StatusHealthy = "healthy"
)

// AnalyzeRequest asks the server to analyze Root and write outputs.
type AnalyzeRequest struct {
	Root string `json:"root"`
	// Output is the nodes document path; empty means nodes.json.
	Output string `json:"output,omitempty"`
}

// AnalyzeResponse reports the result of an analysis. Analysis failures are
// reported with Success false and Error set.
type AnalyzeResponse struct {
	Success         bool   `json:"success"`
	NodesCount      int    `json:"nodes_count,omitempty"`
	FilesCount      int    `json:"files_count,omitempty"`
	OutputPath      string `json:"output_path,omitempty"`
	ClassesDictPath string `json:"classes_dict_path,omitempty"`
	RunID           string `json:"run_id,omitempty"`
	Error           string `json:"error,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries transport-level failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
