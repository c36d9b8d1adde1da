package ocrscanapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/escolar/pkg/iam"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/ocrscan"
	"github.com/Abraxas-365/escolar/pkg/ocrscan/ocrscansrv"
)

const (
	scopeProcess = "ocr:process"
	scopeRead    = "scans:read"
)

// Handlers exposes the scan service under /api/ocr.
type Handlers struct {
	service *ocrscansrv.Service
}

func NewHandlers(service *ocrscansrv.Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the routes behind authn, which must store a
// *kernel.AuthContext in c.Locals("auth").
func (h *Handlers) RegisterRoutes(router fiber.Router, authn fiber.Handler) {
	ocr := router.Group("/api/ocr", authn)

	ocr.Post("/process", requireScope(scopeProcess), h.Process)
	ocr.Post("/batch", requireScope(scopeProcess), h.ProcessBatch)
	ocr.Post("/extract", requireScope(scopeProcess), h.Extract)
	ocr.Post("/jobs", requireScope(scopeProcess), h.Enqueue)
	ocr.Get("/jobs/:id", h.GetJob)
	ocr.Get("/scans", requireScope(scopeRead), h.ListScans)
	ocr.Get("/scans/:id", requireScope(scopeRead), h.GetScan)
}

// Process escanea un documento. Un escaneo fallido responde 400 con el mismo
// cuerpo que uno exitoso.
func (h *Handlers) Process(c *fiber.Ctx) error {
	auth, err := authContext(c)
	if err != nil {
		return err
	}

	var req ocrscan.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return ocrscan.ErrInvalidRequest("invalid JSON body")
	}

	resp := h.service.Process(c.UserContext(), *auth.UserID, req)
	if !resp.Success {
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	return c.JSON(resp)
}

func (h *Handlers) ProcessBatch(c *fiber.Ctx) error {
	auth, err := authContext(c)
	if err != nil {
		return err
	}

	var req ocrscan.BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return ocrscan.ErrInvalidRequest("invalid JSON body")
	}

	resp, err := h.service.ProcessBatch(c.UserContext(), *auth.UserID, req.Items)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *Handlers) Extract(c *fiber.Ctx) error {
	var req ocrscan.ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return ocrscan.ErrInvalidRequest("invalid JSON body")
	}

	result, err := h.service.Extract(req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *Handlers) Enqueue(c *fiber.Ctx) error {
	auth, err := authContext(c)
	if err != nil {
		return err
	}

	var req ocrscan.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return ocrscan.ErrInvalidRequest("invalid JSON body")
	}

	id, err := h.service.Enqueue(c.UserContext(), *auth.UserID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(ocrscan.EnqueueResponse{JobID: id})
}

func (h *Handlers) GetJob(c *fiber.Ctx) error {
	auth, err := authContext(c)
	if err != nil {
		return err
	}

	view, err := h.service.GetJob(c.UserContext(), auth, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handlers) GetScan(c *fiber.Ctx) error {
	auth, err := authContext(c)
	if err != nil {
		return err
	}

	scan, err := h.service.Get(c.UserContext(), auth, kernel.NewScanID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(scan)
}

func (h *Handlers) ListScans(c *fiber.Ctx) error {
	auth, err := authContext(c)
	if err != nil {
		return err
	}

	filter := ocrscan.ScanFilter{DocumentType: c.Query("document_type")}
	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", kernel.DefaultPageSize),
	}

	page, err := h.service.List(c.UserContext(), auth, filter, opts)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// ============================================================================
// Helpers
// ============================================================================

func authContext(c *fiber.Ctx) (*kernel.AuthContext, error) {
	auth, ok := c.Locals("auth").(*kernel.AuthContext)
	if !ok || auth == nil || !auth.IsValid() {
		return nil, iam.ErrUnauthorized()
	}
	return auth, nil
}

func requireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth, err := authContext(c)
		if err != nil {
			return err
		}
		if !auth.HasScope(scope) {
			return iam.ErrAccessDenied().WithDetail("scope", scope)
		}
		return c.Next()
	}
}
