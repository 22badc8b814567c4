// Package api exposes a read-only HTTP introspection surface over the
// supervisor's task table and command history (§4.H/§4.I): a view for
// operators and test harnesses that sits beside the stdin/stdout
// protocol without touching it.
package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskexec/taskexec/internal/api/middleware"
	"github.com/taskexec/taskexec/internal/supervisor"
)

// zapLogger is a Gin middleware that logs each request through log,
// joining any errors Gin handlers attached to the context.
func zapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", middleware.GetRequestID(c)),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// NewServer builds the HTTP introspection surface bound to addr. It never
// writes to stdout: all logging goes through log (stderr), and the only
// output is the JSON response bodies below.
func NewServer(addr string, log *zap.Logger, sup *supervisor.Supervisor) *http.Server {
	snapshots := supervisor.NewTaskSnapshotService(sup, supervisor.SnapshotOptions{TTL: 200 * time.Millisecond})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.Use(gin.Recovery())

	r.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
	}))

	if os.Getenv("TASKEXEC_ENV") == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.RequestID())
	r.Use(zapLogger(log))

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.GET("/api/tasks", func(c *gin.Context) {
		res, err := snapshots.Get(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		c.Header("X-Cache", map[bool]string{true: "HIT", false: "MISS"}[res.CacheHit])
		c.Header("X-Total-Count", strconv.Itoa(len(res.Tasks)))
		c.JSON(http.StatusOK, res.Tasks)
	})

	r.GET("/api/tasks/:n", func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("n"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid task number"})
			return
		}

		res, err := snapshots.Get(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		if n < 0 || n >= len(res.Tasks) {
			c.JSON(http.StatusNotFound, gin.H{"message": "task does not exist"})
			return
		}
		c.JSON(http.StatusOK, res.Tasks[n])
	})

	r.GET("/api/history", func(c *gin.Context) {
		n, _ := strconv.Atoi(c.DefaultQuery("n", "0"))
		c.JSON(http.StatusOK, sup.History.Recent(n))
	})

	return &http.Server{
		Addr:    addr,
		Handler: r,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,

		MaxHeaderBytes: 1 << 15,

		ErrorLog: zap.NewStdLog(log.Named("http").WithOptions(zap.AddCallerSkip(1))),
	}
}
