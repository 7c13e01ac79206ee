package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"sweep_server/core/port/in"
	"sweep_server/pkg/response"
)

type AccountHandler struct {
	accounts in.AccountService
	states   *stateStore
	log      zerolog.Logger
}

func NewAccountHandler(accounts in.AccountService, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		states:   newStateStore(),
		log:      log.With().Str("handler", "account").Logger(),
	}
}

func (h *AccountHandler) Register(app fiber.Router) {
	app.Get("/accounts", h.List)
	app.Post("/accounts/connect", h.Connect)
	app.Get("/oauth/callback", h.Callback)
	app.Delete("/accounts/:id", h.Disconnect)
}

func (h *AccountHandler) List(c *fiber.Ctx) error {
	accounts, err := h.accounts.List(c.Context())
	if err != nil {
		return response.AppError(c, err)
	}
	return response.OK(c, accounts)
}

// Connect issues a consent URL with a fresh CSRF state nonce. The client
// redirects the browser to auth_url; the provider returns to the callback.
func (h *AccountHandler) Connect(c *fiber.Ctx) error {
	state, err := h.states.issue()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue oauth state")
		return response.InternalError(c, "failed to start account connection")
	}
	return response.OK(c, fiber.Map{
		"auth_url": h.accounts.AuthURL(state),
		"state":    state,
	})
}

func (h *AccountHandler) Callback(c *fiber.Ctx) error {
	if errMsg := c.Query("error"); errMsg != "" {
		h.log.Warn().Str("error", errMsg).Msg("oauth consent denied")
		return response.Error(c, fiber.StatusBadRequest, "OAUTH_FAILED", "consent was denied: "+errMsg)
	}

	state := c.Query("state")
	if state == "" || !h.states.consume(state) {
		return response.BadRequest(c, "invalid or expired oauth state")
	}

	code := c.Query("code")
	if code == "" {
		return response.BadRequest(c, "missing authorization code")
	}

	account, err := h.accounts.Connect(c.Context(), code)
	if err != nil {
		h.log.Error().Err(err).Msg("oauth exchange failed")
		return response.AppError(c, err)
	}

	h.log.Info().Str("account", account.ID).Msg("account connected")
	return response.Created(c, account)
}

func (h *AccountHandler) Disconnect(c *fiber.Ctx) error {
	accountID := c.Params("id")
	if err := h.accounts.Disconnect(c.Context(), accountID); err != nil {
		return response.AppError(c, err)
	}
	h.log.Info().Str("account", accountID).Msg("account disconnected")
	return response.OK(c, fiber.Map{"disconnected": accountID})
}
