// Package api serves the KPI engine read-only over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"orderdocs/internal/kpi"
)

// KPIs is the part of *kpi.Engine the handlers use.
type KPIs interface {
	All(ctx context.Context, opts kpi.Options) (kpi.Report, error)
	ByName(ctx context.Context, name string, limit int) (any, error)
}

// Handler holds the dependencies of the HTTP surface.
type Handler struct {
	kpis    KPIs
	workers int
	newID   func() string
}

// NewHandler builds a Handler. newID labels full reports; nil leaves the
// run id empty.
func NewHandler(k KPIs, workers int, newID func() string) *Handler {
	if newID == nil {
		newID = func() string { return "" }
	}
	return &Handler{kpis: k, workers: workers, newID: newID}
}

// NewRouter wires the routes:
//
//	GET /live          liveness
//	GET /kpis          every KPI, ?limit= caps the revenue rankings
//	GET /kpis/:name    one KPI by name
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog())

	r.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/kpis", h.listKPIs)
	r.GET("/kpis/:name", h.getKPI)
	return r
}

func (h *Handler) listKPIs(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	rep, err := h.kpis.All(c.Request.Context(), kpi.Options{Limit: limit, Workers: h.workers, RunID: h.newID()})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) getKPI(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	name := c.Param("name")
	v, err := h.kpis.ByName(c.Request.Context(), name, limit)
	switch {
	case errors.Is(err, kpi.ErrUnknownKPI):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "known": kpi.Names()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "result": v})
}

func limitParam(c *gin.Context) (int, bool) {
	s := c.Query("limit")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("api: method=%s path=%s status=%d elapsed=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Truncate(time.Microsecond))
	}
}

// Serve runs router on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, router http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("api: listening addr=%s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
