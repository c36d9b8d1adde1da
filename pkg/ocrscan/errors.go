package ocrscan

import (
	"net/http"

	"github.com/Abraxas-365/escolar/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("OCRSCAN")

var (
	CodeScanNotFound   = ErrRegistry.Register("SCAN_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Escaneo no encontrado")
	CodeScanExists     = ErrRegistry.Register("SCAN_EXISTS", errx.TypeConflict, http.StatusConflict, "El escaneo ya existe")
	CodeInvalidRequest = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Solicitud no válida")
	CodeBatchTooLarge  = ErrRegistry.Register("BATCH_TOO_LARGE", errx.TypeValidation, http.StatusBadRequest, "El lote excede el tamaño máximo permitido")
	CodeImageTooLarge  = ErrRegistry.Register("IMAGE_TOO_LARGE", errx.TypeValidation, http.StatusRequestEntityTooLarge, "La imagen excede el tamaño máximo permitido")
)

func ErrScanNotFound(id string) *errx.Error {
	return ErrRegistry.New(CodeScanNotFound).WithDetail("scan_id", id)
}

func ErrInvalidRequest(reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidRequest).WithDetail("reason", reason)
}

func ErrBatchTooLarge(size, limit int) *errx.Error {
	return ErrRegistry.New(CodeBatchTooLarge).
		WithDetail("size", size).
		WithDetail("limit", limit)
}

func ErrImageTooLarge(size, limit int) *errx.Error {
	return ErrRegistry.New(CodeImageTooLarge).
		WithDetail("size", size).
		WithDetail("limit", limit)
}
