package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketplace-assistant-be/internal/constant"
	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/pkg/serverutils"
	"marketplace-assistant-be/internal/service"
	"marketplace-assistant-be/pkg/catalog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatbotService struct {
	lastQuery *dto.QueryRequest
	queryErr  error
	endErr    error
	getErr    error
}

func (s *stubChatbotService) Query(_ context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	s.lastQuery = req
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	id := req.SessionId
	if id == "" {
		id = "generated"
	}
	return &dto.QueryResponse{Message: "Olá!", SessionId: id, Stage: "Welcome", VisitedStages: []string{"Welcome"}}, nil
}

func (s *stubChatbotService) EndSession(_ context.Context, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error) {
	if s.endErr != nil {
		return nil, s.endErr
	}
	return &dto.EndSessionResponse{Message: constant.SessionEndedMessage, SessionId: req.SessionId}, nil
}

func (s *stubChatbotService) GetSession(_ context.Context, id string) (*dto.SessionResponse, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &dto.SessionResponse{SessionId: id, Stage: "ProductQA"}, nil
}

func newApp(register func(fiber.Router)) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	register(app.Group("/api"))
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp, decode(t, resp.Body)
}

func decode(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func TestQueryDefaultsToMainStage(t *testing.T) {
	svc := &stubChatbotService{}
	app := newApp(NewChatbotController(svc).RegisterRoutes)

	resp, body := post(t, app, "/api/chatbot/v1/query", `{"question":"Oi"}`)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "main", svc.lastQuery.Stage)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Olá!", data["message"])
	assert.Equal(t, "generated", data["session_id"])
	assert.NotContains(t, data, "rag_content")
}

func TestQueryValidation(t *testing.T) {
	app := newApp(NewChatbotController(&stubChatbotService{}).RegisterRoutes)

	tests := []struct {
		name string
		body string
	}{
		{"missing question", `{"stage":"main"}`},
		{"unknown stage", `{"question":"Oi","stage":"turbo"}`},
		{"bad session id", `{"question":"Oi","session_id":"abc"}`},
		{"not json", `question=Oi`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, app, "/api/chatbot/v1/query", tt.body)
			assert.Equal(t, 400, resp.StatusCode)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestQueryFailureIsGeneric(t *testing.T) {
	app := newApp(NewChatbotController(&stubChatbotService{queryErr: errors.New("ollama: connection refused")}).RegisterRoutes)

	resp, body := post(t, app, "/api/chatbot/v1/query", `{"question":"Oi","stage":"single"}`)

	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, constant.GenericFailureMessage, body["message"])
}

func TestEndSession(t *testing.T) {
	id := uuid.NewString()

	app := newApp(NewChatbotController(&stubChatbotService{}).RegisterRoutes)
	resp, body := post(t, app, "/api/chatbot/v1/end-session", `{"session_id":"`+id+`"}`)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, constant.SessionEndedMessage, body["data"].(map[string]interface{})["message"])

	app = newApp(NewChatbotController(&stubChatbotService{endErr: service.ErrSessionNotFound}).RegisterRoutes)
	resp, _ = post(t, app, "/api/chatbot/v1/end-session", `{"session_id":"`+id+`"}`)
	assert.Equal(t, 404, resp.StatusCode)

	resp, _ = post(t, app, "/api/chatbot/v1/end-session", `{}`)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetSession(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, 200},
		{service.ErrInvalidSessionID, 400},
		{service.ErrSessionNotFound, 404},
		{errors.New("redis down"), 500},
	}
	for _, tt := range tests {
		app := newApp(NewChatbotController(&stubChatbotService{getErr: tt.err}).RegisterRoutes)
		resp, err := app.Test(httptest.NewRequest("GET", "/api/chatbot/v1/sessions/"+uuid.NewString(), nil))
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode)
	}
}

type stubIngestService struct {
	enqueued []catalog.Product
	source   string
}

func (s *stubIngestService) LoadFile(path string) ([]catalog.Product, error) {
	return catalog.ParseFile(path)
}

func (s *stubIngestService) Index(context.Context, []catalog.Product, string) (int, error) {
	return 0, nil
}

func (s *stubIngestService) Enqueue(_ context.Context, products []catalog.Product, source string) (int, error) {
	s.enqueued = products
	s.source = source
	return len(products), nil
}

func (s *stubIngestService) IndexOne(context.Context, catalog.Product) error { return nil }

func TestCatalogIngest(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "produtos.txt")
	require.NoError(t, os.WriteFile(good, []byte("Mercearia: Arroz - R$ 25,90\nBebidas: Suco - R$ 7,50\n"), 0o644))
	bad := filepath.Join(dir, "quebrado.txt")
	require.NoError(t, os.WriteFile(bad, []byte("Mercearia Arroz R$ 25,90\n"), 0o644))

	svc := &stubIngestService{}
	app := newApp(NewCatalogController(svc).RegisterRoutes)

	resp, body := post(t, app, "/api/catalog/v1/ingest", `{"path":"`+good+`"}`)
	assert.Equal(t, 202, resp.StatusCode)
	assert.Equal(t, float64(2), body["data"].(map[string]interface{})["products"])
	assert.Equal(t, "produtos.txt", svc.source)

	resp, body = post(t, app, "/api/catalog/v1/ingest", `{"path":"`+bad+`"}`)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Contains(t, body["message"], "line 1")

	resp, _ = post(t, app, "/api/catalog/v1/ingest", `{"path":"`+filepath.Join(dir, "nada.txt")+`"}`)
	assert.Equal(t, 404, resp.StatusCode)

	resp, _ = post(t, app, "/api/catalog/v1/ingest", `{}`)
	assert.Equal(t, 400, resp.StatusCode)
}
