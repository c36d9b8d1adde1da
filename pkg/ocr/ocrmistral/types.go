package ocrmistral

// OCRRequest is the body of POST /ocr.
type OCRRequest struct {
	Model    string        `json:"model"`
	Document DocumentInput `json:"document"`
}

// DocumentInput carries the image inline as a data URL.
type DocumentInput struct {
	Type        string `json:"type"` // "document_url" or "image_url"
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type OCRResponse struct {
	Pages     []PageData `json:"pages"`
	Model     string     `json:"model"`
	UsageInfo UsageInfo  `json:"usage_info"`
}

type PageData struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type UsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes"`
}

// apiError is the error envelope Mistral answers with.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}
