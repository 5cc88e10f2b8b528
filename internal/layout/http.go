package layout

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"go.klb.dev/wmglue/internal/metrics"
	"go.klb.dev/wmglue/internal/middleware"
)

// DefaultAddr is the layout server's listen address.
const DefaultAddr = "0.0.0.0:7397"

// Options configures NewRouter.
type Options struct {
	// StaticDir, when set, is served for GET requests no route matches.
	StaticDir string
	// RPS and Burst bound the mutating routes. RPS <= 0 disables the limit.
	RPS   float64
	Burst int
	// Registry receives request metrics and is exposed at /metrics.
	Registry *prometheus.Registry
}

type focusRequest struct {
	WID string `json:"wid" binding:"required"`
}

type hotkeyRequest struct {
	Hotkey string `json:"hotkey" binding:"required"`
}

type commandRequest struct {
	Command string `json:"command" binding:"required"`
}

// NewRouter returns the layout HTTP routes backed by svc.
func NewRouter(svc *Service, opts Options) *gin.Engine {
	r := middleware.NewEngine()
	r.Use(middleware.PermissiveCORS())
	if opts.Registry != nil {
		r.Use(middleware.Metrics(metrics.NewHTTP(opts.Registry, "wmglue_layout")))
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Registry)))
	}

	// Preflights carrying an Origin are answered by the CORS middleware.
	r.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/list", func(c *gin.Context) {
		snap, err := svc.Refresh(c.Request.Context())
		if err != nil {
			middleware.Error(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	r.POST("/cachedlist", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Cached())
	})

	act := r.Group("/")
	if opts.RPS > 0 {
		act.Use(middleware.GlobalRateLimit(opts.RPS, opts.Burst))
	}

	act.POST("/focus", func(c *gin.Context) {
		var req focusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Error(c, http.StatusBadRequest, err)
			return
		}
		snap, err := svc.Focus(c.Request.Context(), req.WID)
		if errors.Is(err, ErrBadWID) {
			middleware.Error(c, http.StatusBadRequest, err)
			return
		}
		if err != nil {
			middleware.Error(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	act.POST("/hotkey", func(c *gin.Context) {
		var req hotkeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Error(c, http.StatusBadRequest, err)
			return
		}
		if err := svc.Hotkey(c.Request.Context(), req.Hotkey); err != nil {
			middleware.Error(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{})
	})

	act.POST("/command", func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Error(c, http.StatusBadRequest, err)
			return
		}
		if err := svc.Command(c.Request.Context(), req.Command); err != nil {
			middleware.Error(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{})
	})

	if opts.StaticDir != "" {
		files := http.FileServer(http.Dir(opts.StaticDir))
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				middleware.Error(c, http.StatusNotFound, errors.New("not found"))
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}

	return r
}

// CheckStaticDir reports whether dir exists and is a directory.
func CheckStaticDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.New(dir + " is not a directory")
	}
	return nil
}
