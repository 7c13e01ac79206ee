package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"sweep_server/core/port/in"
	"sweep_server/core/service/export"
	"sweep_server/pkg/response"
)

type ExportHandler struct {
	exports in.ExportService
}

func NewExportHandler(exports in.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func (h *ExportHandler) Register(app fiber.Router) {
	app.Get("/export.csv", h.ExportCSV)
}

// ExportCSV streams the current result set as a CSV download. It exports
// whatever was last scanned and never triggers a scan itself.
func (h *ExportHandler) ExportCSV(c *fiber.Ctx) error {
	view := c.Query("view", export.ViewSenders)
	accountID := c.Query("account")

	data, err := h.exports.ExportCSV(view, accountID)
	if err != nil {
		return response.AppError(c, err)
	}

	filename := "sweep-" + view + "-" + time.Now().UTC().Format("20060102-150405") + ".csv"
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
