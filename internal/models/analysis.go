package models

import "time"

// AnalysisResult is the output of the tax analysis engine.
// The three string slices are never nil.
type AnalysisResult struct {
	Summary         string           `json:"summary"`
	Confidence      float64          `json:"confidence"`
	Recommendations []string         `json:"recommendations"`
	Risks           []string         `json:"risks"`
	Optimizations   []string         `json:"optimizations"`
	Metadata        AnalysisMetadata `json:"metadata"`
}

// AnalysisMetadata describes how a result was produced
type AnalysisMetadata struct {
	Provider             string    `json:"provider"`
	Model                string    `json:"model,omitempty"`
	ProcessingTimeMs     int64     `json:"processing_time_ms"`
	RequestID            string    `json:"request_id"`
	Timestamp            time.Time `json:"timestamp"`
	FromCache            bool      `json:"from_cache"`
	UsedFallbackProvider bool      `json:"used_fallback_provider"`
	Fallback             bool      `json:"fallback"`
	ParseError           string    `json:"parse_error,omitempty"`
}

// Clone returns a deep copy so cached results can be handed out safely
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Recommendations = append([]string{}, r.Recommendations...)
	out.Risks = append([]string{}, r.Risks...)
	out.Optimizations = append([]string{}, r.Optimizations...)
	return &out
}

// AnalysisRecord is a processed document as kept in the history store
type AnalysisRecord struct {
	ID           int64            `json:"id"`
	RequestID    string           `json:"request_id"`
	DocumentType DocumentType     `json:"document_type"`
	SourceName   string           `json:"source_name"`
	Validation   ValidationReport `json:"validation"`
	Analysis     *AnalysisResult  `json:"analysis,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
