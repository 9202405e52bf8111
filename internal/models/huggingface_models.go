package models

type InferenceRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters *InferenceParameters `json:"parameters,omitempty"`
	Options    *InferenceOptions    `json:"options,omitempty"`
}

type InferenceParameters struct {
	TopK      int   `json:"top_k,omitempty"`
	MaxLength int   `json:"max_length,omitempty"`
	MinLength int   `json:"min_length,omitempty"`
	DoSample  *bool `json:"do_sample,omitempty"`
}

type InferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

type InferenceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// TextRequest is the body accepted by the self-hosted analysis service.
type TextRequest struct {
	Text string `json:"text"`
}

type SummaryResponse struct {
	SummaryText string `json:"summary_text"`
}

type ServiceStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
