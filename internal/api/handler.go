package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fridgechef/internal/logging"
	"fridgechef/internal/recipe"
	"fridgechef/internal/recommend"
)

const requestTimeout = 5 * time.Second

// DefaultMaxBodyBytes caps fridge payloads when MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 1 << 20

// Recommender defines the recommendation operations the handlers call.
type Recommender interface {
	ValidateFridgePayload(ctx context.Context, raw []byte) (recommend.Fridge, error)
	Recommend(ctx context.Context, fridge recommend.Fridge) ([]recommend.Recommendation, error)
	LastRecommended(ctx context.Context, window time.Duration) (*recommend.LastRecommended, error)
	MostPopular(ctx context.Context, count int) (*recommend.Popular, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests.
type Handler struct {
	Recommender   Recommender
	HealthChecker HealthChecker

	// DefaultWindow and DefaultCount apply when the query omits them.
	DefaultWindow time.Duration
	DefaultCount  int

	// MaxBodyBytes limits the fridge payload size.
	MaxBodyBytes int64
}

// NewHandler creates a new Handler.
func NewHandler(recommender Recommender, healthChecker HealthChecker) *Handler {
	return &Handler{
		Recommender:   recommender,
		HealthChecker: healthChecker,
		DefaultWindow: recommend.DefaultWindow,
		DefaultCount:  recommend.DefaultPopularCount,
		MaxBodyBytes:  DefaultMaxBodyBytes,
	}
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Recipe Service</title>
</head>
<body>
    <p><a href="/recipes/possible">POST /recipes/possible</a>
    <p><a href="/recipes/last">GET /recipes/last</a>
    <p><a href="/components/popular">GET /components/popular</a>
</body>
</html>
`

// Index serves the static informational page.
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
}

// PossibleRecipes handles fridge submissions and returns coverable recipes.
func (h *Handler) PossibleRecipes(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBodyBytes))
	if err != nil {
		logging.Debug().Err(err).Msg("failed to read fridge payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": recipe.DetailDecodeFailure})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	fridge, err := h.Recommender.ValidateFridgePayload(ctx, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	logging.Debug().Interface("fridge", fridge).Msg("received fridge payload")

	recipes, err := h.Recommender.Recommend(ctx, fridge)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipes)
}

type lastQuery struct {
	Window int `form:"window" binding:"omitempty,min=1"`
}

// LastRecipes handles requests for recently recommended recipes.
func (h *Handler) LastRecipes(c *gin.Context) {
	var q lastQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a positive number of seconds"})
		return
	}
	window := h.DefaultWindow
	if q.Window > 0 {
		window = time.Duration(q.Window) * time.Second
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	last, err := h.Recommender.LastRecommended(ctx, window)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, last)
}

type popularQuery struct {
	Count int `form:"count" binding:"omitempty,min=1"`
}

// PopularComponents handles requests for the most popular ingredients.
func (h *Handler) PopularComponents(c *gin.Context) {
	var q popularQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive integer"})
		return
	}
	count := h.DefaultCount
	if q.Count > 0 {
		count = q.Count
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	popular, err := h.Recommender.MostPopular(ctx, count)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, popular)
}

// Health reports whether the database is reachable.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.HealthChecker.Ping(ctx); err != nil {
		logging.Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, err error) {
	var verr *recipe.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Detail})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "database query timed out"})
	case errors.Is(err, recipe.ErrNotFound):
		logging.Err(err).Str("path", c.FullPath()).Msg("store integrity violation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		logging.Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	}
}
