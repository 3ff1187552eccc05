package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/internal/api/http/handlers"
	"github.com/spec-kit/spark-support/internal/auth"
	"github.com/spec-kit/spark-support/internal/config"
	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/events"
	"github.com/spec-kit/spark-support/internal/observability"
	"github.com/spec-kit/spark-support/internal/repository"
	"github.com/spec-kit/spark-support/internal/service"
	"github.com/spec-kit/spark-support/internal/session"
	"github.com/spec-kit/spark-support/internal/sparkai"
)

type testApp struct {
	app     *fiber.App
	metrics  *observability.Metrics
	auth     *service.AuthService
	sessions *session.MemoryStore
}

// upstream answers every endpoint by path.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat":
			_, _ = io.WriteString(w, `{"text":"Bitte **Papier** entfernen"}`)
		case "/priority":
			_, _ = io.WriteString(w, `{"priority":"critical","confidence":0.91}`)
		case "/translate":
			_, _ = io.WriteString(w, `"Betreff: Login failt\n\nBeschreibung: User kann sich nicht einloggen"`)
		default:
			w.WriteHeader(nethttp.StatusInternalServerError)
			_, _ = io.WriteString(w, "no handler")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, endpoints config.EndpointsConfig, authRequired bool) testApp {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	var cfg config.Config
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.DeviceTokenTTLMinutes = 10
	hash, err := auth.HashSecret("enroll-me", 4)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Auth.EnrollmentSecretHash = hash

	tickets := repository.NewTicketRepository([]domain.Ticket{
		{ID: "2023-CS1", Subject: "Drucker", Description: "Papierstau", Product: "LaserJet", Priority: domain.PriorityLow, Status: "Open", Department: "IT"},
		{ID: "2023-CS2", Subject: "VPN", Description: "Verbindung bricht ab", Priority: domain.PriorityHigh, Status: "Open", Department: "Netz"},
	})
	demo := domain.Ticket{ID: "2023-CS9", Subject: "Demo", Description: "Demo Beschreibung", Priority: domain.PriorityHigh, Status: "Open"}
	client := sparkai.NewClient(endpoints, logger, sparkai.WithMetrics(metrics))
	sessions := session.NewMemoryStore()

	ticketSvc := service.NewTicketService(service.TicketDependencies{TicketRepo: tickets, Dispatcher: events.NewInMemoryDispatcher(), Logger: logger})
	assistant := service.NewAssistantService(service.AssistantDependencies{
		Client:         client,
		Tickets:        tickets,
		Sessions:       session.NewProvider(sessions, logger),
		Logger:         logger,
		RenderMarkdown: true,
		Demo:           &demo,
	})
	authSvc := service.NewAuthService(cfg, service.AuthDependencies{DeviceRepo: repository.NewMemoryDeviceRepository()})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("spark-support", "test", nil, client.Configured, metrics),
		Auth:           handlers.NewAuthHandler(authSvc),
		Tickets:        handlers.NewTicketsHandler(ticketSvc),
		Conversations:  handlers.NewConversationsHandler(assistant),
		Assistant:      handlers.NewAssistantHandler(assistant, service.NewTranslateService(client, logger), service.NewUpgradeService(client, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), authRequired),
	})
	return testApp{app: app, metrics: metrics, auth: authSvc, sessions: sessions}
}

func allUp(t *testing.T) config.EndpointsConfig {
	srv := upstream(t)
	return config.EndpointsConfig{
		Chat:        srv.URL + "/chat",
		HomeChat:    srv.URL + "/chat",
		Priority:    srv.URL + "/priority",
		Translate:   srv.URL + "/translate",
		UpgradePath: srv.URL + "/upgrade",
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: body is not JSON: %s", method, path, raw)
		}
	}
	return resp.StatusCode, env
}

func TestTicketRoutes(t *testing.T) {
	ta := newTestApp(t, config.EndpointsConfig{}, false)

	status, env := do(t, ta.app, fiber.MethodGet, "/api/tickets?q=vpn", "")
	if status != fiber.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var list []map[string]any
	_ = json.Unmarshal(env.Data, &list)
	if len(list) != 1 || list[0]["id"] != "2023-CS2" {
		t.Fatalf("list = %v", list)
	}

	status, env = do(t, ta.app, fiber.MethodGet, "/api/tickets/2023-cs1", "")
	if status != fiber.StatusOK {
		t.Fatalf("get status = %d", status)
	}

	status, env = do(t, ta.app, fiber.MethodGet, "/api/tickets/nope", "")
	if status != fiber.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("missing ticket: %d %+v", status, env.Error)
	}

	status, env = do(t, ta.app, fiber.MethodPatch, "/api/tickets/nope", `{"status":"Closed"}`)
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"updated":false`) {
		t.Fatalf("no-op update: %d %s", status, env.Data)
	}

	status, env = do(t, ta.app, fiber.MethodPatch, "/api/tickets/2023-CS1", `{"priority":"critical"}`)
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"priority":"Critical"`) {
		t.Fatalf("update: %d %s", status, env.Data)
	}

	status, env = do(t, ta.app, fiber.MethodPatch, "/api/tickets/2023-CS1", `{"priority":"whenever"}`)
	if status != fiber.StatusBadRequest || env.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("bad priority: %d %+v", status, env.Error)
	}

	status, env = do(t, ta.app, fiber.MethodGet, "/api/tickets/2023-CS1/history", "")
	if status != fiber.StatusServiceUnavailable || env.Error.Code != "CONFIGURATION_MISSING" {
		t.Fatalf("history without postgres: %d %+v", status, env.Error)
	}
}

func TestConversationFlow(t *testing.T) {
	ta := newTestApp(t, allUp(t), false)

	status, env := do(t, ta.app, fiber.MethodPost, "/api/conversations", `{"ticket_id":"2023-CS1"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create: %d %+v", status, env.Error)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &created)

	status, env = do(t, ta.app, fiber.MethodPost, "/api/conversations/"+created.ID+"/analyze", "", auth.DeviceHeader, "tablet-3")
	if status != fiber.StatusOK {
		t.Fatalf("analyze: %d %+v", status, env.Error)
	}
	var res service.AnalysisResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if !res.InitialPrompt || res.Chat.Answer == nil || res.Chat.Answer.Text != "Bitte **Papier** entfernen" {
		t.Fatalf("chat = %+v", res.Chat)
	}
	if !strings.Contains(res.Chat.Answer.HTML, "<strong>Papier</strong>") {
		t.Fatalf("html = %q", res.Chat.Answer.HTML)
	}
	if res.Priority == nil || res.Priority.Prediction == nil || res.Priority.Prediction.Tier != "Critical" {
		t.Fatalf("priority = %+v", res.Priority)
	}

	status, env = do(t, ta.app, fiber.MethodPost, "/api/conversations/"+created.ID+"/replies", `{"message":"  "}`)
	if status != fiber.StatusBadRequest || env.Error.Message != service.EmptyReplyMessage {
		t.Fatalf("blank reply: %d %+v", status, env.Error)
	}

	status, _ = do(t, ta.app, fiber.MethodPost, "/api/conversations/"+created.ID+"/replies", `{"message":"Und jetzt?"}`)
	if status != fiber.StatusOK {
		t.Fatalf("reply: %d", status)
	}

	status, env = do(t, ta.app, fiber.MethodGet, "/api/conversations/"+created.ID, "")
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"initial_prompt_sent":true`) {
		t.Fatalf("get: %d %s", status, env.Data)
	}

	status, env = do(t, ta.app, fiber.MethodPut, "/api/conversations/"+created.ID, `{"description":"Neues Problem"}`)
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"initial_prompt_sent":false`) {
		t.Fatalf("reset: %d %s", status, env.Data)
	}

	status, _ = do(t, ta.app, fiber.MethodDelete, "/api/conversations/"+created.ID, "")
	if status != fiber.StatusNoContent {
		t.Fatalf("delete: %d", status)
	}
	status, _ = do(t, ta.app, fiber.MethodGet, "/api/conversations/"+created.ID, "")
	if status != fiber.StatusNotFound {
		t.Fatalf("get after delete: %d", status)
	}
}

func TestDeviceHeaderSessionsSurviveLaterRequests(t *testing.T) {
	ta := newTestApp(t, allUp(t), false)
	_, env := do(t, ta.app, fiber.MethodPost, "/api/conversations", `{"ticket_id":"2023-CS2"}`)
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &created)

	for _, device := range []string{"tablet-AAAA", "tablet-BBBB", "tablet-AAAA", "tablet-BBBB"} {
		status, env := do(t, ta.app, fiber.MethodPost, "/api/conversations/"+created.ID+"/analyze", "", auth.DeviceHeader, device)
		if status != fiber.StatusOK {
			t.Fatalf("analyze as %s: %d %+v", device, status, env.Error)
		}
	}

	ctx := context.Background()
	first, err := ta.sessions.Get(ctx, "tablet-AAAA")
	if err != nil || first == "" {
		t.Fatalf("tablet-AAAA session = %q, %v", first, err)
	}
	second, err := ta.sessions.Get(ctx, "tablet-BBBB")
	if err != nil || second == "" {
		t.Fatalf("tablet-BBBB session = %q, %v", second, err)
	}
	if first == second {
		t.Fatalf("devices share session id %q", first)
	}
}

func TestAnalyzeReportsMissingEndpointsPerPart(t *testing.T) {
	ta := newTestApp(t, config.EndpointsConfig{}, false)
	_, env := do(t, ta.app, fiber.MethodPost, "/api/conversations", `{"demo":true}`)
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &created)

	status, env := do(t, ta.app, fiber.MethodPost, "/api/conversations/"+created.ID+"/analyze", "")
	if status != fiber.StatusOK {
		t.Fatalf("analyze: %d %+v", status, env.Error)
	}
	var res service.AnalysisResult
	_ = json.Unmarshal(env.Data, &res)
	if res.Chat.Error == nil || res.Chat.Error.Code != "CONFIGURATION_MISSING" {
		t.Fatalf("chat = %+v", res.Chat)
	}
	if res.Priority == nil || res.Priority.Error == nil || res.Priority.Error.Code != "CONFIGURATION_MISSING" {
		t.Fatalf("priority = %+v", res.Priority)
	}
}

func TestAssistantRoutes(t *testing.T) {
	ta := newTestApp(t, allUp(t), false)

	status, env := do(t, ta.app, fiber.MethodPost, "/api/translate", `{"subject":"Login failt","description":"User kann sich nicht einloggen"}`)
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"subject":"Login failt"`) {
		t.Fatalf("translate: %d %s", status, env.Data)
	}

	status, env = do(t, ta.app, fiber.MethodPost, "/api/priority", `{"description":"Server brennt"}`)
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"hex":"#C21B1B"`) {
		t.Fatalf("priority: %d %s", status, env.Data)
	}

	status, env = do(t, ta.app, fiber.MethodPost, "/api/upgrade-path", `{"from":"7.1","to":"8.0"}`)
	if status != fiber.StatusBadGateway || env.Error.Code != "UPSTREAM_ERROR" || env.Error.Details["status"] != float64(500) {
		t.Fatalf("upgrade: %d %+v", status, env.Error)
	}

	status, env = do(t, ta.app, fiber.MethodPost, "/api/upgrade-path", `{"from":"7.1"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("upgrade validation: %d", status)
	}
	fields, _ := env.Error.Details["fields"].(map[string]any)
	if fields["to"] != "required" {
		t.Fatalf("fields = %v", env.Error.Details)
	}

	status, env = do(t, ta.app, fiber.MethodPost, "/api/chat", `{"question":"Hallo","history":[{"role":"bot","content":"x"}]}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("chat validation: %d", status)
	}
	fields, _ = env.Error.Details["fields"].(map[string]any)
	if fields["history[0].role"] != "oneof" {
		t.Fatalf("fields = %v", env.Error.Details)
	}

	status, env = do(t, ta.app, fiber.MethodPost, "/api/chat", `{"question":"Hallo","history":[{"role":"apiMessage","content":"Hi"}]}`)
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), "Papier") {
		t.Fatalf("chat: %d %s", status, env.Data)
	}

	status, env = do(t, ta.app, fiber.MethodGet, "/api/demo-ticket", "")
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"id":"2023-CS9"`) {
		t.Fatalf("demo: %d %s", status, env.Data)
	}
}

func TestDeviceAuth(t *testing.T) {
	ta := newTestApp(t, config.EndpointsConfig{}, true)

	status, env := do(t, ta.app, fiber.MethodGet, "/api/tickets", "")
	if status != fiber.StatusUnauthorized || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("anonymous: %d %+v", status, env.Error)
	}

	status, _ = do(t, ta.app, fiber.MethodPost, "/auth/devices", `{"device_id":"tablet-1","secret":"wrong"}`)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("wrong secret: %d", status)
	}

	status, env = do(t, ta.app, fiber.MethodPost, "/auth/devices", `{"device_id":"tablet-1","label":"Empfang","secret":"enroll-me"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("enroll: %d %+v", status, env.Error)
	}
	var enrolled struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(env.Data, &enrolled)

	bearer := "Bearer " + enrolled.Token
	status, _ = do(t, ta.app, fiber.MethodGet, "/api/tickets", "", fiber.HeaderAuthorization, bearer)
	if status != fiber.StatusOK {
		t.Fatalf("with token: %d", status)
	}
	status, env = do(t, ta.app, fiber.MethodGet, "/auth/devices/me", "", fiber.HeaderAuthorization, bearer)
	if status != fiber.StatusOK || !strings.Contains(string(env.Data), `"label":"Empfang"`) {
		t.Fatalf("me: %d %s", status, env.Data)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	ta := newTestApp(t, config.EndpointsConfig{Chat: "http://localhost:1"}, false)

	status, _ := do(t, ta.app, fiber.MethodGet, "/health/live", "")
	if status != fiber.StatusOK {
		t.Fatalf("live: %d", status)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/health/ready", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var ready struct {
		Status    string            `json:"status"`
		Endpoints map[string]string `json:"endpoints"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&ready)
	resp.Body.Close()
	if ready.Status != "ready" || ready.Endpoints["chat"] != "configured" || ready.Endpoints["priority"] != "missing" {
		t.Fatalf("ready = %+v", ready)
	}

	status, env := do(t, ta.app, fiber.MethodGet, "/api/nope", "")
	if status != fiber.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unknown route: %d %+v", status, env.Error)
	}

	if snap := ta.metrics.Snapshot(); len(snap.Requests) == 0 {
		t.Fatal("requests not recorded")
	}
}
