package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rootcauseai/rootcause/internal/ratelimit"
)

const requestIDKey = "request_id"

// requestID tags every request with an X-Request-ID, echoing the
// caller's value when one is supplied.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

// requestLogger emits one structured log line per completed request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("request completed",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// observeRequests feeds the request counter and latency histogram.
func (s *Server) observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// admit rejects requests that exceed the per-client sliding windows.
// Denials carry the exceeded window in the error body so callers can
// back off sensibly.
func (s *Server) admit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		identity := ratelimit.ClientIdentity(c.Request)
		decision := s.limiter.Admit(identity)
		if !decision.Allowed {
			s.metrics.RateLimitBlocksTotal.Inc()
			s.logger.Warn("request rate limited",
				"identity", identity,
				"reason", decision.Reason,
				"request_id", c.GetString(requestIDKey))

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":    decision.Reason,
				"category": categoryRateLimit,
			})
			return
		}

		c.Next()
	}
}
