package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	r := s.engine
	r.HandleMethodNotAllowed = true
	// Topics may contain an escaped "/", matched as part of :topic.
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorBody("method not allowed"))
	})

	// point-to-point
	r.POST("/send", s.handleSend)
	r.GET("/receive", s.handleReceive)

	// publish/subscribe
	r.POST("/publish", s.handlePublish)
	r.GET("/subscribe", s.handleSubscribe)
	r.GET("/subscribe/:topic", s.handleSubscribe)
	r.GET("/topics", s.handleTopics)

	r.GET("/healthz", s.handleHealth)
	r.GET("/activity", s.handleActivity)

	r.GET("/", greeting("¡Desde la raiz /!"))
	r.GET("/test", greeting("¡test!"))

	api := r.Group("/api")
	api.GET("/test", greeting("¡api test!"))
	api.GET("/route", handleRoute)
}

func greeting(text string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, text)
	}
}
