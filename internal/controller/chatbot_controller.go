package controller

import (
	"errors"

	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/pkg/serverutils"
	"marketplace-assistant-be/internal/service"
	"marketplace-assistant-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chatbot/v1")
	h.Post("query", c.Query)
	h.Post("end-session", c.EndSession)
	h.Get("sessions/:id", c.GetSession)
}

func (c *chatbotController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Stage == "" {
		req.Stage = store.ModeMain
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.Query(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}

func (c *chatbotController) EndSession(ctx *fiber.Ctx) error {
	var req dto.EndSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.EndSession(ctx.UserContext(), &req)
	if errors.Is(err, service.ErrSessionNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	}
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success end session", res))
}

func (c *chatbotController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.chatbotService.GetSession(ctx.UserContext(), ctx.Params("id"))
	switch {
	case errors.Is(err, service.ErrInvalidSessionID):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	case errors.Is(err, service.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case err != nil:
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}
