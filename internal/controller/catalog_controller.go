package controller

import (
	"errors"
	"os"
	"path/filepath"

	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/pkg/serverutils"
	"marketplace-assistant-be/internal/service"
	"marketplace-assistant-be/pkg/catalog"

	"github.com/gofiber/fiber/v2"
)

type ICatalogController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type catalogController struct {
	ingestService service.IIngestService
}

func NewCatalogController(ingestService service.IIngestService) ICatalogController {
	return &catalogController{
		ingestService: ingestService,
	}
}

func (c *catalogController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/catalog/v1")
	h.Post("ingest", c.Ingest)
}

// Ingest parses the whole file up front, then queues one indexing job per product
func (c *catalogController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	products, err := c.ingestService.LoadFile(req.Path)
	var perr *catalog.ParseError
	switch {
	case errors.As(err, &perr):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, perr.Error()))
	case errors.Is(err, os.ErrNotExist):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "catalog file not found"))
	case err != nil:
		return err
	}

	source := filepath.Base(req.Path)
	queued, err := c.ingestService.Enqueue(ctx.UserContext(), products, source)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Success queue catalog", dto.IngestResponse{
		Source:   source,
		Products: queued,
		Queued:   true,
	}))
}
