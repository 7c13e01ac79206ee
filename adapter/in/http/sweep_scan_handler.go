package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"sweep_server/core/domain"
	"sweep_server/core/port/in"
	"sweep_server/pkg/response"
)

type ScanHandler struct {
	scans in.ScanService
	log   zerolog.Logger
}

func NewScanHandler(scans in.ScanService, log zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		scans: scans,
		log:   log.With().Str("handler", "scan").Logger(),
	}
}

func (h *ScanHandler) Register(app fiber.Router) {
	app.Post("/scan", h.StartScan)
	app.Get("/scan/:id/progress", h.Progress)
}

type startScanRequest struct {
	AccountID   string `json:"account_id"`
	Query       string `json:"query"`
	MaxMessages int    `json:"max_messages"`
}

// StartScan submits a background scan and returns the job ID immediately.
// An empty account_id scans every connected account.
func (h *ScanHandler) StartScan(c *fiber.Ctx) error {
	var req startScanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.MaxMessages < 0 {
		return response.BadRequest(c, "max_messages must not be negative")
	}

	jobID, err := h.scans.StartScan(c.Context(), domain.ScanRequest{
		AccountID:   req.AccountID,
		Query:       req.Query,
		MaxMessages: req.MaxMessages,
	})
	if err != nil {
		return response.AppError(c, err)
	}

	h.log.Info().Str("job", jobID).Str("account", req.AccountID).Msg("scan started")
	return c.Status(fiber.StatusAccepted).JSON(response.Response{
		Success: true,
		Data:    fiber.Map{"job_id": jobID},
	})
}

func (h *ScanHandler) Progress(c *fiber.Ctx) error {
	progress, err := h.scans.Progress(c.Params("id"))
	if err != nil {
		return response.AppError(c, err)
	}
	return response.OK(c, progress)
}
