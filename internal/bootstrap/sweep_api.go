package bootstrap

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	httpadapter "sweep_server/adapter/in/http"
	"sweep_server/config"
	"sweep_server/pkg/apperr"
	"sweep_server/pkg/response"
)

// NewAPI builds the Fiber app with all routes registered. The returned
// cleanup stops background scans and closes the token store.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,

		// go-json is a drop-in encoder noticeably faster than encoding/json.
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// AllowCredentials requires explicit origins, never "*".
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,Content-Disposition",
		AllowCredentials: allowOrigins != "" && allowOrigins != "*",
	}))

	httpadapter.NewHealthHandler().Register(app)

	api := app.Group("/api")
	httpadapter.NewAccountHandler(deps.AccountService, deps.Log).Register(api)
	httpadapter.NewScanHandler(deps.ScanService, deps.Log).Register(api)
	httpadapter.NewResultsHandler(deps.ScanService).Register(api)
	httpadapter.NewActionHandler(deps.ActionService, deps.Log).Register(api)
	httpadapter.NewExportHandler(deps.ExportService).Register(api)

	return app, cleanup, nil
}

// errorHandler catches errors that escape handlers, keeping the response
// envelope consistent for routing-level failures too.
func errorHandler(c *fiber.Ctx, err error) error {
	if apperr.IsAppError(err) {
		return response.AppError(c, err)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return response.Error(c, fiberErr.Code, apperr.CodeBadRequest, fiberErr.Message)
	}
	return response.InternalError(c, "internal server error")
}
