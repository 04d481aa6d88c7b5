package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/LJTian/newsdigest/internal/collector"
	"github.com/LJTian/newsdigest/internal/processor"
	"github.com/LJTian/newsdigest/internal/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner 见 scheduler.Runner
type Runner interface {
	Collect(ctx context.Context, src collector.Source) ([]processor.Article, collector.Stats, error)
	Preview(ctx context.Context, src collector.Source) (string, int, error)
	RunSource(ctx context.Context, src collector.Source) scheduler.RunResult
	LastResults() map[string]scheduler.RunResult
}

type Server struct {
	runner  Runner
	sources []collector.Source
	log     *zap.Logger
}

func NewServer(runner Runner, sources []collector.Source, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{runner: runner, sources: sources, log: log}
}

// RegisterRoutes user/pass 非空时 /api/v1 需要 Basic Auth，/health 始终免认证
func (s *Server) RegisterRoutes(r *gin.Engine, user, pass string) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	if user != "" && pass != "" {
		v1.Use(basicAuthMiddleware(user, pass))
	}
	{
		v1.GET("/sources", s.listSources)
		v1.GET("/articles", s.listArticles)
		v1.GET("/digest", s.previewDigest)
		v1.GET("/runs", s.lastRuns)
		v1.POST("/runs/:source", s.triggerRun)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type sourceView struct {
	Code       string               `json:"code"`
	Name       string               `json:"name"`
	ListURL    string               `json:"listUrl"`
	Pages      int                  `json:"pages"`
	DateFormat string               `json:"dateFormat"`
	Window     string               `json:"window"`
	LastRun    *scheduler.RunResult `json:"lastRun,omitempty"`
}

func (s *Server) listSources(c *gin.Context) {
	last := s.runner.LastResults()
	out := make([]sourceView, 0, len(s.sources))
	for _, src := range s.sources {
		v := sourceView{
			Code:       src.Code,
			Name:       src.Name,
			ListURL:    src.ListURL,
			Pages:      src.PageCount(),
			DateFormat: src.DateFormat.String(),
			Window:     src.Window.Policy.String(),
		}
		if res, ok := last[src.Code]; ok {
			v.LastRun = &res
		}
		out = append(out, v)
	}
	ok(c, out)
}

func (s *Server) listArticles(c *gin.Context) {
	src, found := s.lookup(c, c.Query("source"))
	if !found {
		return
	}
	articles, stats, err := s.runner.Collect(c.Request.Context(), src)
	if err != nil {
		s.upstreamError(c, src, err)
		return
	}
	ok(c, gin.H{"source": src.Code, "stats": stats, "articles": articles})
}

func (s *Server) previewDigest(c *gin.Context) {
	src, found := s.lookup(c, c.Query("source"))
	if !found {
		return
	}
	html, _, err := s.runner.Preview(c.Request.Context(), src)
	if err != nil {
		s.upstreamError(c, src, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) lastRuns(c *gin.Context) {
	ok(c, s.runner.LastResults())
}

func (s *Server) triggerRun(c *gin.Context) {
	src, found := s.lookup(c, c.Param("source"))
	if !found {
		return
	}
	res := s.runner.RunSource(c.Request.Context(), src)
	switch {
	case res.Err == nil:
		ok(c, res)
	case errors.Is(res.Err, scheduler.ErrLocked):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "run_in_progress",
			"message": res.Error,
			"data":    res,
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    "run_failed",
			"message": res.Error,
			"data":    res,
		})
	}
}

// lookup 只在已启用的数据源中查找；未找到时已写入响应
func (s *Server) lookup(c *gin.Context, code string) (collector.Source, bool) {
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_argument",
			"message": "source is required",
		})
		return collector.Source{}, false
	}
	for _, src := range s.sources {
		if src.Code == code {
			return src, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "not_found",
		"message": "unknown source: " + code,
	})
	return collector.Source{}, false
}

func (s *Server) upstreamError(c *gin.Context, src collector.Source, err error) {
	s.log.Warn("collect for api failed", zap.String("source", src.Code), zap.Error(err))
	code := "internal_error"
	if errors.Is(err, collector.ErrFetch) {
		code = "fetch_failed"
	}
	c.JSON(http.StatusBadGateway, gin.H{
		"code":    code,
		"message": err.Error(),
	})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}
