package dto

// RunQueryRequest carries one raw read-only statement.
type RunQueryRequest struct {
	Query   string `json:"query"`
	Company string `json:"company"`
}
