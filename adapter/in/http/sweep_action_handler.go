package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"sweep_server/core/domain"
	"sweep_server/core/port/in"
	"sweep_server/pkg/response"
)

type ActionHandler struct {
	actions in.ActionService
	log     zerolog.Logger
}

func NewActionHandler(actions in.ActionService, log zerolog.Logger) *ActionHandler {
	return &ActionHandler{
		actions: actions,
		log:     log.With().Str("handler", "action").Logger(),
	}
}

func (h *ActionHandler) Register(app fiber.Router) {
	actions := app.Group("/actions")
	actions.Post("/trash", h.Trash)
	actions.Post("/spam", h.Spam)
	actions.Post("/unsubscribe", h.Unsubscribe)
	actions.Post("/filter", h.Filter)
}

type actionRequest struct {
	AccountID   string `json:"account_id"`
	SenderEmail string `json:"sender_email"`
	Domain      string `json:"domain"`
	Action      string `json:"action"` // filter endpoint only: trash or spam
}

func (r *actionRequest) target() (domain.ActionTarget, error) {
	if r.AccountID == "" {
		return domain.ActionTarget{}, errMissingAccount
	}
	if (r.SenderEmail == "") == (r.Domain == "") {
		return domain.ActionTarget{}, errAmbiguousTarget
	}
	return domain.ActionTarget{
		AccountID:   r.AccountID,
		SenderEmail: r.SenderEmail,
		Domain:      r.Domain,
	}, nil
}

var (
	errMissingAccount  = fiber.NewError(fiber.StatusBadRequest, "account_id is required")
	errAmbiguousTarget = fiber.NewError(fiber.StatusBadRequest, "exactly one of sender_email or domain is required")
)

func (h *ActionHandler) Trash(c *fiber.Ctx) error {
	return h.apply(c, domain.ActionTrash)
}

func (h *ActionHandler) Spam(c *fiber.Ctx) error {
	return h.apply(c, domain.ActionSpam)
}

func (h *ActionHandler) apply(c *fiber.Ctx, action domain.BulkAction) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	target, err := req.target()
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.actions.Apply(c.Context(), action, target)
	if err != nil {
		return response.AppError(c, err)
	}

	h.log.Info().Str("action", string(action)).Str("account", target.AccountID).
		Int("succeeded", result.Succeeded).Int("failed", result.Failed).
		Msg("bulk action applied")
	return response.OK(c, result)
}

// Unsubscribe returns the stored unsubscribe link. The server never follows
// it; opening the link is the client's job.
func (h *ActionHandler) Unsubscribe(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.AccountID == "" || req.SenderEmail == "" {
		return response.BadRequest(c, "account_id and sender_email are required")
	}

	link, err := h.actions.Unsubscribe(req.AccountID, req.SenderEmail)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.OK(c, fiber.Map{"unsubscribe": link})
}

func (h *ActionHandler) Filter(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	target, err := req.target()
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	action := domain.BulkAction(req.Action)
	if action == "" {
		action = domain.ActionTrash
	}
	if !action.Valid() {
		return response.BadRequest(c, "action must be trash or spam")
	}

	result, err := h.actions.CreateFilter(c.Context(), target, action)
	if err != nil {
		return response.AppError(c, err)
	}

	h.log.Info().Str("account", target.AccountID).Bool("existed", result.AlreadyExisted).
		Msg("filter created")
	return response.Created(c, result)
}
