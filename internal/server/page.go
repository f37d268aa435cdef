package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mlcruz9/miguel-dev/internal/content"
	"github.com/Mlcruz9/miguel-dev/internal/heatmap"
	"github.com/Mlcruz9/miguel-dev/internal/media"
	"github.com/Mlcruz9/miguel-dev/internal/scroll"
)

const (
	keyframeCount  = 17
	heatmapTimeout = 8 * time.Second
)

type navItem struct {
	ID    string
	Label string
}

var navItems = []navItem{
	{"projects", "Projects"},
	{"toolbox", "MLOps Toolbox"},
	{"experience", "Experience"},
	{"activity", "Activity"},
	{"contact", "Contact"},
}

type previewView struct {
	media.Preview
	URL string
}

type cardView struct {
	content.Project
	Preview previewView
}

func newPreviewView(p content.Project, hovered bool) previewView {
	return previewView{
		Preview: media.NewPreview(p.Media, p.Title+" preview", hovered),
		URL:     "/projects/" + p.Slug + "/preview?hover=" + strconv.FormatBool(!hovered),
	}
}

func (s *Server) setupPageRoutes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/api/visual", s.visual)
	r.GET("/projects/:slug/preview", s.preview)
	r.GET("/activity", s.activity)

	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		if s.store != nil {
			if err := s.store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (s *Server) index(c *gin.Context) {
	// First paint is the top of the page; the client takes over on scroll.
	visual := scroll.Derive(scroll.Sample{Offset: 0, Max: 1})

	cards := make([]cardView, len(s.content.Projects))
	for i, p := range s.content.Projects {
		cards[i] = cardView{Project: p, Preview: newPreviewView(p, false)}
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"P":          s.content,
		"Visual":     visual,
		"Background": visual.Background(),
		"Keyframes":  scroll.Keyframes(keyframeCount),
		"Cards":      cards,
		"Nav":        navItems,
		"Active":     "projects",
		"Year":       s.now().Year(),
	})
}

type visualQuery struct {
	Offset float64 `form:"offset"`
	Max    float64 `form:"max"`
}

// visual answers with the background parameters for a scroll sample.
// A query that does not bind reads as the top of the page.
func (s *Server) visual(c *gin.Context) {
	var q visualQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		q = visualQuery{}
	}
	c.JSON(http.StatusOK, scroll.Derive(scroll.Sample{Offset: q.Offset, Max: q.Max}))
}

func (s *Server) preview(c *gin.Context) {
	p, ok := s.content.Project(c.Param("slug"))
	if !ok {
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{
			"error": "Unknown project",
		})
		return
	}
	hovered, _ := strconv.ParseBool(c.Query("hover"))
	c.HTML(http.StatusOK, "preview", newPreviewView(p, hovered))
}

func (s *Server) activity(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), heatmapTimeout)
	defer cancel()

	username := s.content.Heatmap.Username
	svg, err := s.heatmap.Render(ctx, username, s.content.Palette())
	if err != nil {
		if !errors.Is(err, heatmap.ErrUnavailable) {
			s.log.Warn("heatmap render failed", zap.String("username", username), zap.Error(err))
		}
		c.HTML(http.StatusOK, "heatmap-fallback.html", gin.H{
			"profile": s.content.Links.GitHub,
		})
		return
	}
	c.HTML(http.StatusOK, "heatmap.html", gin.H{
		"svg": svg,
	})
}
