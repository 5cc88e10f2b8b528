package place

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"go.klb.dev/wmglue/internal/metrics"
	"go.klb.dev/wmglue/internal/middleware"
)

// DefaultAddr is the placement server's listen address.
const DefaultAddr = "0.0.0.0:8666"

// Request is a resort query. Either Parents or Names must be set; Parents
// wins when both are.
type Request struct {
	Names   []string
	Classes []string
	Parents []int
	Tag     string
}

// Resort computes the spiral order for req.
func Resort(req Request) (Placement, error) {
	var (
		k   int
		sim Similarity
	)
	switch {
	case len(req.Parents) > 0:
		k, sim = len(req.Parents), NewParentSimilarity(req.Parents)
	case len(req.Names) > 0:
		if len(req.Classes) > len(req.Names) {
			return Placement{}, errors.New("more classes than names")
		}
		k, sim = len(req.Names), NewTokenSimilarity(req.Names, req.Classes)
	}
	if k == 0 {
		return Place(nil), nil
	}
	return Place(CostMatrix(k, sim)), nil
}

// ParseRequest decodes the comma separated form values used by /resort.
func ParseRequest(names, classes, parents, tag string) (Request, error) {
	req := Request{
		Names:   splitList(names),
		Classes: splitList(classes),
		Tag:     tag,
	}
	for _, p := range splitList(parents) {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Request{}, fmt.Errorf("launchparents: %w", err)
		}
		req.Parents = append(req.Parents, v)
	}
	return req, nil
}

// FormatOrder renders an order as the comma separated list /resort returns.
func FormatOrder(order []int) string {
	parts := make([]string, len(order))
	for i, v := range order {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// NewRouter returns the placement HTTP routes.
func NewRouter(reg *prometheus.Registry) *gin.Engine {
	r := middleware.NewEngine()
	if reg != nil {
		r.Use(middleware.Metrics(metrics.NewHTTP(reg, "wmglue_place")))
		r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/resort", func(c *gin.Context) {
		req, err := ParseRequest(
			c.PostForm("names"),
			c.PostForm("classes"),
			c.PostForm("launchparents"),
			c.PostForm("tag"),
		)
		if err != nil {
			middleware.Error(c, http.StatusBadRequest, err)
			return
		}
		p, err := Resort(req)
		if err != nil {
			middleware.Error(c, http.StatusBadRequest, err)
			return
		}
		slog.Debug("resort", "tag", req.Tag, "size", p.Size, "order", p.Order)
		c.String(http.StatusOK, FormatOrder(p.Order))
	})

	return r
}
