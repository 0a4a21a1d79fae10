package server

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/nfrund/parley/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// apiBurst is how many requests an IP may make before the sustained rate applies.
const apiBurst = 100

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	users := handlers.NewUserHandler(s.deps.Accounts, s.deps.Profiles)
	chats := handlers.NewChatHandler(s.deps.Chats, s.deps.Uploads)
	requireAuth := middleware.Auth(s.authn)

	s.E.GET("/health", s.health)
	s.E.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{s.metrics, prometheus.DefaultGatherer},
	}))
	if s.deps.Media != nil {
		s.E.GET(s.cfg.GetStoragePublicURL()+"/*", storage.NewMediaHandler(s.deps.Media).Serve)
	}
	if s.deps.Hub != nil && s.deps.Gateway != nil {
		s.E.GET("/ws", s.deps.Gateway.Handler(s.deps.Hub))
	}

	api := s.E.Group("/api", middleware.RateLimiter(s.cfg.GetRateLimit(), apiBurst))

	u := api.Group("/users")
	u.POST("/send-otp", users.SendOTP)
	u.POST("/signup", users.Signup)
	u.POST("/signin", users.Signin)
	u.POST("/forgot-password", users.ForgotPassword)
	u.POST("/forgot-password-link/:resetToken", users.ResetPassword)
	u.GET("/signout", users.Signout, requireAuth)
	u.GET("/me", users.Me, requireAuth)
	u.GET("/all", users.All, requireAuth)
	u.GET("", users.Search, requireAuth)
	u.PUT("/edit", users.Edit, requireAuth)
	u.DELETE("/delete", users.Delete, requireAuth)

	c := api.Group("/chats", requireAuth)
	c.POST("", chats.AccessChat)
	c.GET("", chats.ListChats)
	c.POST("/group", chats.CreateGroup)
	c.PUT("/rename", chats.RenameGroup)
	c.PUT("/groupadd", chats.AddToGroup)
	c.PUT("/groupremove", chats.RemoveFromGroup)
	c.PUT("/groupexit", chats.ExitGroup)

	m := api.Group("/messages", requireAuth)
	m.POST("", chats.SendMessage)
	m.GET("/:chatId", chats.ListMessages)

	st := api.Group("/status", requireAuth)
	st.POST("", chats.PostStatus)
	st.GET("", chats.StatusFeed)
	st.DELETE("/:statusId", chats.DeleteStatus)

	if s.deps.Hub != nil {
		presence := handlers.NewPresenceHandler(s.deps.Hub.Registry())
		p := api.Group("/presence", requireAuth)
		p.GET("", presence.GetPresence)
		p.GET("/:userId", presence.GetUserPresence)
	}
}
