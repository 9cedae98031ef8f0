package fakebackend

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/config"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

type Server struct {
	cfg      config.FakeBackend
	scraper  *Scraper
	products func() []model.RawProduct
}

func NewServer(cfg config.FakeBackend) *Server {
	return &Server{
		cfg:      cfg,
		scraper:  NewScraper(cfg.ScrapeTimeout),
		products: Fixture,
	}
}

func (s *Server) Engine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cache-Control, Pragma, Expires")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/fetch-data", s.fetchData)
	router.GET("/agents", s.listAgents)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.NoRoute(func(c *gin.Context) {
		respondWithError(c, http.StatusNotFound, "Rota não encontrada")
	})

	return router
}

func respondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func (s *Server) fetchData(c *gin.Context) {
	ctx := c.Request.Context()
	if s.cfg.Latency > 0 {
		select {
		case <-time.After(s.cfg.Latency):
		case <-ctx.Done():
			return
		}
	}

	// ?fail=<status> answers with that HTTP status, ?fail=backend with a failed envelope
	if fail := strings.TrimSpace(c.Query("fail")); fail != "" {
		if code, err := strconv.Atoi(fail); err == nil && code >= 400 && code <= 599 {
			c.String(code, http.StatusText(code))
			return
		}
		respondWithError(c, http.StatusOK, ErrNoProducts.Error())
		return
	}

	shape := c.DefaultQuery("shape", s.cfg.Shape)
	source := strings.TrimSpace(c.Query("source"))

	products, err := s.collect(ctx, source)
	if err != nil {
		log.Printf("[fakebackend] level=error collect failed source=%q: %v\n", source, err)
		respondWithError(c, http.StatusOK, "Erro no servidor: "+err.Error())
		return
	}
	if len(products) == 0 {
		respondWithError(c, http.StatusOK, ErrNoProducts.Error())
		return
	}

	body, err := BuildResponse(shape, products)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, body)
}

func (s *Server) collect(ctx context.Context, source string) ([]model.RawProduct, error) {
	if source == "" || !s.cfg.Scrape {
		return s.products(), nil
	}
	products, err := s.scraper.Scrape(ctx, source)
	if err != nil {
		return nil, err
	}
	log.Printf("[fakebackend] scraped source=%q products=%d\n", source, len(products))
	return products, nil
}

func (s *Server) listAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"agents":  AvailableAgents(s.cfg.Scrape),
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		status := c.Writer.Status()

		level := "info"
		if status >= 500 {
			level = "error"
		} else if status >= 400 {
			level = "warn"
		}
		log.Printf("http level=%s method=%s path=%s status=%d duration_ms=%d\n", level, c.Request.Method, c.Request.URL.Path, status, time.Since(started).Milliseconds())
	}
}
