// Package server assembles the fiber application: REST routes, the
// websocket upgrade, and static serving of uploads.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/tatarskisamurai/pwa-chat/internal/auth"
	"github.com/tatarskisamurai/pwa-chat/internal/handlers"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
	"github.com/tatarskisamurai/pwa-chat/internal/ws"
)

type Deps struct {
	JWT        *auth.JWTManager
	Users      *repository.UserRepository
	Auth       *handlers.AuthHandler
	UserH      *handlers.UserHandler
	Chats      *handlers.ChatHandler
	Messages   *handlers.MessageHandler
	Upload     *handlers.UploadHandler
	Dispatcher *ws.Dispatcher
	UploadDir  string
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:5173, http://127.0.0.1:5173, http://localhost:3000, http://127.0.0.1:3000",
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "chat-api"})
	})

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", d.Auth.Register)
	authGroup.Post("/login", d.Auth.Login)

	requireAuth := handlers.RequireAuth(d.JWT, d.Users)

	users := api.Group("/users", requireAuth)
	users.Get("/list", d.UserH.List)
	users.Get("/me", d.UserH.Me)

	chats := api.Group("/chats", requireAuth)
	chats.Get("", d.Chats.List)
	chats.Post("", d.Chats.Create)
	chats.Get("/:id", d.Chats.Get)
	chats.Patch("/:id", d.Chats.Update)
	chats.Delete("/:id", d.Chats.Delete)
	chats.Get("/:id/members", d.Chats.Members)

	messages := api.Group("/messages", requireAuth)
	messages.Get("/search", d.Messages.Search)
	messages.Get("/chat/:chat_id", d.Messages.List)
	messages.Post("/chat/:chat_id", d.Messages.Create)
	messages.Patch("/:id", d.Messages.Edit)
	messages.Delete("/:id", d.Messages.Delete)

	api.Post("/upload", requireAuth, d.Upload.Upload)
	api.Static("/uploads", d.UploadDir)

	// websocket endpoint; auth happens inside the handler so a bad
	// token gets a proper close code instead of a failed upgrade
	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(d.Dispatcher.Handle))

	return app
}
