package main

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templatesFS embed.FS

const sessionLocal = "session"

// WebServer is the browser surface. Every POST dispatches one command,
// saves the resulting session state and redirects back to the page.
type WebServer struct {
	app      *fiber.App
	core     *App
	sessions *SessionStore
	page     *template.Template
	logger   *zap.Logger
}

// NewWebServer builds the fiber application and registers the routes.
func NewWebServer(core *App, sessions *SessionStore, logger *zap.Logger) (*WebServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               ServerName,
		DisableStartupMessage: true,
		BodyLimit:             4 * 1024 * 1024,
		// form values outlive the request once they are stored in a session
		Immutable: true,
	})
	ws := &WebServer{app: app, core: core, sessions: sessions, page: page, logger: logger}

	app.Use(recover.New())
	app.Use(ws.requestLogger)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	app.Use(ws.sessionMiddleware)
	app.Get("/", ws.index)
	app.Get("/export", ws.export)
	app.Post("/connection", ws.selectConnection)
	app.Post("/danger", ws.setDangerMode)
	app.Post("/select", ws.selectCollection)
	app.Post("/collections", ws.createCollection)
	app.Post("/collections/delete", ws.deleteCollection)
	app.Post("/documents", ws.addDocument)

	return ws, nil
}

// App exposes the fiber application, mainly for tests.
func (ws *WebServer) App() *fiber.App {
	return ws.app
}

// Run listens on addr until the server is shut down.
func (ws *WebServer) Run(addr string) error {
	ws.logger.Info("web server listening", zap.String("addr", addr))
	return ws.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	return ws.app.ShutdownWithContext(ctx)
}

func (ws *WebServer) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	ws.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err))
	return err
}

func (ws *WebServer) sessionMiddleware(c *fiber.Ctx) error {
	state := ws.sessions.Load(c.Cookies(SessionCookieName))
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    state.ID,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(sessionLocal, state)
	return c.Next()
}

func sessionFrom(c *fiber.Ctx) SessionState {
	state, _ := c.Locals(sessionLocal).(SessionState)
	return state
}

// dispatch runs cmd for the request's session and redirects to the page.
func (ws *WebServer) dispatch(c *fiber.Ctx, cmd Command) error {
	next, _ := ws.core.Dispatch(c.UserContext(), sessionFrom(c), cmd)
	ws.sessions.Save(next)
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (ws *WebServer) index(c *fiber.Ctx) error {
	state := sessionFrom(c)
	if tab := c.Query("tab"); tab != "" {
		state, _ = ws.core.Dispatch(c.UserContext(), state, SelectTab{Tab: tab})
	}

	view, next := ws.core.Render(c.UserContext(), state)
	ws.sessions.Save(next)

	var buf bytes.Buffer
	if err := ws.page.Execute(&buf, view); err != nil {
		ws.logger.Error("failed to render page", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (ws *WebServer) export(c *fiber.Ctx) error {
	state := sessionFrom(c)
	data, err := ws.core.ExportCollection(c.UserContext(), state)
	if err != nil {
		ws.sessions.Save(state.WithNotice(Notice{Level: NoticeError, Text: describeError(err)}))
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	c.Attachment(data.ExportFilename())
	return c.JSON(data)
}

func (ws *WebServer) selectConnection(c *fiber.Ctx) error {
	mode, err := ParseHostType(c.FormValue("host_type"))
	if err != nil {
		ws.sessions.Save(sessionFrom(c).WithNotice(Notice{Level: NoticeError, Text: describeError(err)}))
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	conn := ConnectionConfig{Mode: mode}
	if mode == HostRemote {
		conn.Host = c.FormValue("host")
		// unparsable input leaves port 0, which fails validation
		conn.Port, _ = strconv.Atoi(c.FormValue("port"))
	}
	return ws.dispatch(c, SelectConnection{Config: conn})
}

func (ws *WebServer) setDangerMode(c *fiber.Ctx) error {
	v := c.FormValue("enabled")
	return ws.dispatch(c, SetDangerMode{Enabled: v == "on" || v == "true" || v == "1"})
}

func (ws *WebServer) selectCollection(c *fiber.Ctx) error {
	return ws.dispatch(c, SelectCollection{Collection: c.FormValue("collection")})
}

func (ws *WebServer) createCollection(c *fiber.Ctx) error {
	return ws.dispatch(c, CreateCollection{Collection: c.FormValue("name")})
}

func (ws *WebServer) deleteCollection(c *fiber.Ctx) error {
	return ws.dispatch(c, DeleteCollection{Collection: c.FormValue("name")})
}

func (ws *WebServer) addDocument(c *fiber.Ctx) error {
	return ws.dispatch(c, AddDocument{
		Content:       c.FormValue("content"),
		MetadataKey:   c.FormValue("metadata_key"),
		MetadataValue: c.FormValue("metadata_value"),
	})
}
