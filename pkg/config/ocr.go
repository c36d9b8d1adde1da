package config

import (
	"fmt"
	"time"
)

// OCR engine names accepted by OCR_ENGINE.
const (
	EngineFlask     = "flask"
	EngineGemini    = "gemini"
	EngineMistral   = "mistral"
	EngineTesseract = "tesseract"
)

// OCRConfig selects the text recognition engine and carries the settings of
// each one. Engines receive their own sub-struct and never read the
// environment themselves.
type OCRConfig struct {
	Engine       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	Flask     FlaskConfig
	Gemini    GeminiConfig
	Mistral   MistralConfig
	Tesseract TesseractConfig
}

// FlaskConfig points at the row segmentation service.
type FlaskConfig struct {
	ServerURL string
}

type GeminiConfig struct {
	APIKey   string
	Model    string
	Project  string
	Location string
	VertexAI bool
}

type MistralConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type TesseractConfig struct {
	Languages []string
}

func loadOCRConfig() OCRConfig {
	return OCRConfig{
		Engine:       getEnv("OCR_ENGINE", EngineFlask),
		Timeout:      getEnvDuration("OCR_TIMEOUT", 2*time.Minute),
		MaxRetries:   getEnvInt("OCR_MAX_RETRIES", 3),
		RetryBackoff: getEnvDuration("OCR_RETRY_BACKOFF", time.Second),
		Flask: FlaskConfig{
			ServerURL: getEnv("OCR_FLASK_SERVER_URL", "http://localhost:5000"),
		},
		Gemini: GeminiConfig{
			APIKey:   getEnv("GEMINI_API_KEY", ""),
			Model:    getEnv("OCR_GEMINI_MODEL", "gemini-2.5-flash"),
			Project:  getEnv("GOOGLE_CLOUD_PROJECT", ""),
			Location: getEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),
			VertexAI: getEnvBool("OCR_GEMINI_VERTEX", false),
		},
		Mistral: MistralConfig{
			APIKey:  getEnv("MISTRAL_API_KEY", ""),
			BaseURL: getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
			Model:   getEnv("OCR_MISTRAL_MODEL", "mistral-ocr-latest"),
		},
		Tesseract: TesseractConfig{
			Languages: getEnvStringSlice("OCR_TESSERACT_LANGUAGES", []string{"spa", "eng"}),
		},
	}
}

// Validate checks that the selected engine has what it needs.
func (c OCRConfig) Validate() error {
	switch c.Engine {
	case EngineFlask:
		if c.Flask.ServerURL == "" {
			return fmt.Errorf("config: OCR_FLASK_SERVER_URL is required for the flask engine")
		}
	case EngineGemini:
		if !c.Gemini.VertexAI && c.Gemini.APIKey == "" {
			return fmt.Errorf("config: GEMINI_API_KEY is required for the gemini engine")
		}
		if c.Gemini.VertexAI && c.Gemini.Project == "" {
			return fmt.Errorf("config: GOOGLE_CLOUD_PROJECT is required for gemini on Vertex AI")
		}
	case EngineMistral:
		if c.Mistral.APIKey == "" {
			return fmt.Errorf("config: MISTRAL_API_KEY is required for the mistral engine")
		}
	case EngineTesseract:
	default:
		return fmt.Errorf("config: unknown OCR_ENGINE %q", c.Engine)
	}
	return nil
}
