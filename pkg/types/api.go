package types

// ModelEntry is one value of the GET /models mapping: catalog metadata merged with live status.
type ModelEntry struct {
	// example: Qwen/Qwen2.5-VL-3B-Instruct
	ID string `json:"id" example:"Qwen/Qwen2.5-VL-3B-Instruct"`
	// example: Qwen2.5-VL-3B-Instruct
	Name string `json:"name" example:"Qwen2.5-VL-3B-Instruct"`
	// example: 3B
	Size string `json:"size" example:"3B"`
	// Architecture family (causal_text or vision_language).
	// example: vision_language
	Type string `json:"type" example:"vision_language"`
	// True once validated artifacts are present in the cache.
	Downloaded bool `json:"downloaded"`
	// Download progress in percent (0-100).
	// example: 42
	Progress int `json:"progress" example:"42"`
	// Last download error, null when none.
	Error *string `json:"error"`
	// True while a download worker is active for the model.
	Downloading bool `json:"downloading"`
}

// ModelsResponse maps model id to its entry.
type ModelsResponse map[string]ModelEntry

// ModelStatusResponse is returned by GET /model_status/{model_id}.
type ModelStatusResponse struct {
	Downloaded  bool `json:"downloaded"`
	Downloading bool `json:"downloading"`
	// example: 100
	Progress int `json:"progress" example:"100"`
	// Present only when the last download failed.
	Error *string `json:"error,omitempty"`
}

// DownloadRequest is the POST /download_model payload.
type DownloadRequest struct {
	// Model identifier from the catalog.
	// example: Qwen/Qwen2.5-VL-3B-Instruct
	ModelID string `json:"model_id" example:"Qwen/Qwen2.5-VL-3B-Instruct"`
	// Hub to fetch from: huggingface (default) or modelscope.
	// example: huggingface
	Source string `json:"source,omitempty" example:"huggingface"`
}

// DownloadResponse acknowledges an accepted download request.
type DownloadResponse struct {
	// example: started
	Status string `json:"status" example:"started"`
}

// ChatRequest is the POST /chat payload.
type ChatRequest struct {
	// example: Qwen/Qwen2.5-VL-3B-Instruct
	ModelID string `json:"model_id" example:"Qwen/Qwen2.5-VL-3B-Instruct"`
	// example: describe this
	Query string `json:"query" example:"describe this"`
	// Prior turns as [query, response] pairs, oldest first.
	History History `json:"history,omitempty" swaggertype:"array,string"`
	// Optional base64 image, optionally prefixed with a data URI header.
	ImageData string `json:"image_data,omitempty"`
}

// ChatResponse carries the reply and the history extended by exactly one turn.
type ChatResponse struct {
	// example: A cat sitting on a windowsill.
	Response string  `json:"response" example:"A cat sitting on a windowsill."`
	History  History `json:"history" swaggertype:"array,string"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
}
