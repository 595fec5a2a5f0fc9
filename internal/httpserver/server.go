package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/snapshot"
	"github.com/tinytelemetry/pulse/internal/stream"
)

// Deps are the components served by the API. Store and Hub are optional.
type Deps struct {
	Monitor model.Monitor
	Store   model.EventReader
	Hub     *stream.Hub
}

// Server provides the HTTP API for a running monitor.
type Server struct {
	addr      string
	deps      Deps
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, deps Deps) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleState)
	api.POST("/configure", s.handleConfigure)
	api.GET("/window", s.handleWindow)
	api.GET("/beats", s.handleBeats)
	api.GET("/snapshot.png", s.handleSnapshot)
	api.GET("/stream", s.handleStream)
	api.GET("/events", s.requireStore, s.handleEvents)
	api.GET("/schema", s.requireStore, s.handleSchema)
	api.POST("/query", s.requireStore, s.handleQuery)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.addr, err)
	}

	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("httpserver: serve: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	st, err := s.deps.Monitor.State()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read monitor state"})
		return
	}

	clients := 0
	if s.deps.Hub != nil {
		clients = s.deps.Hub.Count()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).String(),
		"frames":  st.Frames,
		"clients": clients,
	})
}

func (s *Server) handleState(c *gin.Context) {
	st, err := s.deps.Monitor.State()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read monitor state"})
		return
	}
	col := snapshot.ToneColor(st.Tone)
	c.JSON(http.StatusOK, gin.H{
		"state": st,
		"color": fmt.Sprintf("#%02x%02x%02x", col.R, col.G, col.B),
	})
}

func (s *Server) handleConfigure(c *gin.Context) {
	var req struct {
		Active *bool  `json:"active" binding:"required"`
		Mode   string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing active field"})
		return
	}
	if err := s.deps.Monitor.Configure(*req.Active, req.Mode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	st, err := s.deps.Monitor.State()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read monitor state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

func (s *Server) handleWindow(c *gin.Context) {
	st, err := s.deps.Monitor.State()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read monitor state"})
		return
	}
	n := queryInt(c, "n", st.Width)
	n = max(1, min(n, st.Width))

	samples, err := s.deps.Monitor.Window(n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":    st.EffectiveMode,
		"frame":   st.Frames,
		"samples": samples,
	})
}

func (s *Server) handleBeats(c *gin.Context) {
	beats, err := s.deps.Monitor.Beats(queryInt(c, "n", 32))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"beats": beats})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	st, err := s.deps.Monitor.State()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read monitor state"})
		return
	}
	samples, err := s.deps.Monitor.Window(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := snapshot.Render(&buf, samples, snapshot.Options{Width: st.Width, Height: st.Height, Tone: st.Tone}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleStream(c *gin.Context) {
	if s.deps.Hub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "streaming disabled"})
		return
	}
	s.deps.Hub.ServeHTTP(c.Writer, c.Request)
}

func (s *Server) requireStore(c *gin.Context) {
	if s.deps.Store == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event recording disabled"})
		return
	}
	c.Next()
}

func (s *Server) handleEvents(c *gin.Context) {
	limit := max(1, min(queryInt(c, "limit", 100), 1000))
	events, err := s.deps.Store.RecentEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read events"})
		return
	}
	counts, err := s.deps.Store.EventCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read event counts"})
		return
	}
	stats, err := s.deps.Store.BeatStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read beat stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"counts": counts,
		"beats":  stats,
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	description := s.deps.Store.GetSchemaDescription()

	tables, err := s.deps.Store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range tables {
		tableName := fmt.Sprintf("%v", row["table_name"])
		schema[tableName] = append(schema[tableName], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.deps.Store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": description,
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	results, err := s.deps.Store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var columns []string
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
