package status

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Snapshot is the point-in-time view served on /status.
type Snapshot struct {
	Phase               string  `json:"phase"`
	SessionID           string  `json:"sessionId"`
	CachedShares        int     `json:"cachedShares"`
	SentShares          int     `json:"sentShares"`
	Mode                string  `json:"mode,omitempty"`
	SwiftPlayCandidates []int64 `json:"swiftPlayCandidates,omitempty"`
}

// SnapshotFunc produces the current snapshot without blocking on network
// I/O.
type SnapshotFunc func(ctx context.Context) Snapshot

// Server is the optional loopback debug surface: health, a state snapshot,
// and prometheus metrics. Off by default; it exists for operators, not as
// the product UI.
type Server struct {
	logger   *zap.Logger
	addr     string
	snapshot SnapshotFunc
	metrics  *Metrics
	srv      *http.Server
}

func NewServer(logger *zap.Logger, addr string, snapshot SnapshotFunc, metrics *Metrics) *Server {
	return &Server{
		logger:   logger.Named("status.server"),
		addr:     addr,
		snapshot: snapshot,
		metrics:  metrics,
	}
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.snapshot(c.Request.Context()))
	})
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return router
}

// Start launches the server in the background.
func (s *Server) Start() {
	router := s.router()

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("status server listening", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
