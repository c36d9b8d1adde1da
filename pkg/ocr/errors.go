package ocr

import (
	"net/http"

	"github.com/Abraxas-365/escolar/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("OCR")

	ErrInvalidImage = errorRegistry.Register(
		"INVALID_IMAGE",
		errx.TypeValidation,
		http.StatusBadRequest,
		"La imagen no es un base64 válido",
	)

	ErrUnsupportedFormat = errorRegistry.Register(
		"UNSUPPORTED_FORMAT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Formato de imagen no soportado",
	)

	ErrNoTextDetected = errorRegistry.Register(
		"NO_TEXT_DETECTED",
		errx.TypeBusiness,
		http.StatusUnprocessableEntity,
		"No se detectó texto en la imagen",
	)

	ErrEngineUnavailable = errorRegistry.Register(
		"ENGINE_UNAVAILABLE",
		errx.TypeExternal,
		http.StatusBadGateway,
		"No se pudo conectar al servidor OCR",
	)

	ErrEngineFailed = errorRegistry.Register(
		"ENGINE_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"No se pudo procesar la imagen con el servidor OCR",
	)

	ErrEngineRateLimited = errorRegistry.Register(
		"ENGINE_RATE_LIMITED",
		errx.TypeExternal,
		http.StatusTooManyRequests,
		"El servidor OCR rechazó la solicitud por exceso de peticiones",
	)

	ErrEngineUnauthorized = errorRegistry.Register(
		"ENGINE_UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Credenciales del servidor OCR inválidas",
	)
)

// Registry exposes the OCR error codes to engine packages.
func Registry() *errx.Registry { return errorRegistry }

// Retryable reports whether an engine error is transient: connectivity,
// rate limits and 5xx answers.
func Retryable(err error) bool {
	e := errx.From(err)
	switch e.Code {
	case ErrEngineUnavailable.Code, ErrEngineRateLimited.Code:
		return true
	case ErrEngineFailed.Code:
		status, _ := e.Details["status_code"].(int)
		return status >= 500
	}
	return false
}

// ErrorForStatus maps an engine HTTP status onto an OCR error code.
func ErrorForStatus(status int) *errx.ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrEngineUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrEngineRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnsupportedMediaType:
		return ErrInvalidImage
	default:
		return ErrEngineFailed
	}
}
