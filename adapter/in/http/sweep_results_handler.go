package http

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"sweep_server/core/port/in"
	"sweep_server/pkg/response"
)

type ResultsHandler struct {
	scans in.ScanService
}

func NewResultsHandler(scans in.ScanService) *ResultsHandler {
	return &ResultsHandler{scans: scans}
}

func (h *ResultsHandler) Register(app fiber.Router) {
	app.Get("/results", h.Results)
	app.Get("/senders/:account/:email", h.SenderDetail)
}

// Results serves the aggregated views. view=senders (default) or
// view=domains; account narrows to one account; limit caps rows.
func (h *ResultsHandler) Results(c *fiber.Ctx) error {
	view := c.Query("view", "senders")
	accountID := c.Query("account")
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		limit = 0
	}

	meta := &response.Meta{View: view, Limit: limit, Account: accountID}
	switch view {
	case "senders":
		rows := h.scans.Senders(accountID, limit)
		meta.Total = len(rows)
		return response.OKWithMeta(c, rows, meta)
	case "domains":
		rows := h.scans.Domains(accountID, limit)
		meta.Total = len(rows)
		return response.OKWithMeta(c, rows, meta)
	default:
		return response.BadRequest(c, "view must be senders or domains")
	}
}

func (h *ResultsHandler) SenderDetail(c *fiber.Ctx) error {
	// Sender addresses arrive percent-encoded in the path.
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return response.BadRequest(c, "invalid sender address")
	}
	detail, err := h.scans.SenderDetail(c.Params("account"), email)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.OK(c, detail)
}
