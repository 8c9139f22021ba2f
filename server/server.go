// Package server serves the chat web UI and its JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatterbox/pkg/conversation"
	"github.com/papercomputeco/chatterbox/pkg/llm"
	"github.com/papercomputeco/chatterbox/pkg/merkle"
)

const pageTitle = "Interactive Chatbot"

// Server is the chat web UI. Each browser session gets its own conversation; the
// optional storer holds traced runs for the /traces endpoints.
type Server struct {
	config   Config
	sessions *Sessions
	cookies  *session.Store
	storer   merkle.Storer
	renderer *renderer
	logger   *zap.Logger
	server   *fiber.App
}

// New creates a new Server. storer may be nil when tracing is disabled.
func New(config Config, newHandler HandlerFactory, storer merkle.Storer, logger *zap.Logger) (*Server, error) {
	if config.SessionTTL <= 0 {
		config.SessionTTL = time.Hour
	}

	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		sessions: NewSessions(config.SessionTTL, newHandler),
		cookies: session.New(session.Config{
			Expiration:     config.SessionTTL,
			CookieHTTPOnly: true,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		}),
		storer:   storer,
		renderer: r,
		logger:   logger,
		server:   app,
	}

	s.routes(app)
	return s, nil
}

func (s *Server) routes(app *fiber.App) {
	app.Get("/", s.handleIndex)
	app.Post("/chat", s.handleSubmit)
	app.Post("/clear", s.handleClear)

	app.Post("/api/chat", s.handleAPIChat)
	app.Get("/api/history", s.handleAPIHistory)
	app.Delete("/api/history", s.handleAPIClear)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	if s.storer != nil {
		app.Get("/traces/stats", s.handleTraceStats)
		app.Get("/traces/node/:hash", s.handleGetNode)
		app.Get("/traces/history", s.handleListHistories)
		app.Get("/traces/history/:hash", s.handleGetHistory)
	}
}

// Run starts the server on the configured listening address
func (s *Server) Run() error {
	s.logger.Info("starting chat server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("model", s.config.Model),
		zap.Bool("tracing", s.storer != nil),
	)

	return s.server.Listen(s.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for in-flight turns.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.ShutdownWithContext(ctx)
}

// Close releases the trace storer.
func (s *Server) Close() error {
	if s.storer == nil {
		return nil
	}
	return s.storer.Close()
}

// conversation returns the turn handler bound to the caller's session cookie.
func (s *Server) conversation(c *fiber.Ctx) (*conversation.Handler, error) {
	sess, err := s.cookies.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	// Values from the request context are only valid until the handler returns
	id := utils.CopyString(sess.ID())
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s.sessions.Get(id), nil
}

// submit runs a turn and logs the outcome.
func (s *Server) submit(c *fiber.Ctx, h *conversation.Handler, text string) ([]llm.Turn, error) {
	startTime := time.Now()

	turns, err := h.Submit(c.UserContext(), text)
	if err != nil {
		s.logger.Error("chat turn failed", zap.Error(err), zap.Duration("duration", time.Since(startTime)))
		return nil, err
	}

	s.logger.Debug("chat turn complete",
		zap.Int("turn_count", len(turns)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return turns, nil
}

// errorStatus maps a turn error to an HTTP status and a user-facing message.
func errorStatus(err error) (int, string) {
	if errors.Is(err, conversation.ErrBusy) {
		return fiber.StatusConflict, "still waiting for the previous reply"
	}
	var turnErr *conversation.TurnError
	if errors.As(err, &turnErr) {
		err = turnErr.Err
	}
	return fiber.StatusBadGateway, "the model could not answer: " + err.Error()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	h, err := s.conversation(c)
	if err != nil {
		return err
	}
	return s.renderPage(c, fiber.StatusOK, h.History(), "")
}

// handleSubmit handles the chat form. Successful and blank submissions redirect
// back to the page; failures re-render it with an error banner.
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	h, err := s.conversation(c)
	if err != nil {
		return err
	}

	if _, err := s.submit(c, h, utils.CopyString(c.FormValue("message"))); err != nil {
		status, msg := errorStatus(err)
		return s.renderPage(c, status, h.History(), msg)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleClear(c *fiber.Ctx) error {
	h, err := s.conversation(c)
	if err != nil {
		return err
	}

	if err := h.Clear(); err != nil {
		status, msg := errorStatus(err)
		return s.renderPage(c, status, h.History(), msg)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) renderPage(c *fiber.Ctx, status int, turns []llm.Turn, errMsg string) error {
	body, err := s.renderer.render(pageData{
		Title:   pageTitle,
		Model:   s.config.Model,
		Tracing: s.storer != nil,
		Bubbles: s.renderer.bubbles(turns),
		Error:   errMsg,
	})
	if err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(body)
}

// ChatRequest is the JSON body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// HistoryResponse carries a session's turns, oldest first.
type HistoryResponse struct {
	Turns []llm.Turn `json:"turns"`
}

func (s *Server) handleAPIChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Debug("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	h, err := s.conversation(c)
	if err != nil {
		return err
	}

	turns, err := s.submit(c, h, req.Message)
	if err != nil {
		status, msg := errorStatus(err)
		return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
	}

	return c.JSON(HistoryResponse{Turns: turns})
}

func (s *Server) handleAPIHistory(c *fiber.Ctx) error {
	h, err := s.conversation(c)
	if err != nil {
		return err
	}
	return c.JSON(HistoryResponse{Turns: h.History()})
}

func (s *Server) handleAPIClear(c *fiber.Ctx) error {
	h, err := s.conversation(c)
	if err != nil {
		return err
	}

	if err := h.Clear(); err != nil {
		status, msg := errorStatus(err)
		return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
	}
	return c.JSON(HistoryResponse{Turns: []llm.Turn{}})
}
