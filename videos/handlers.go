// Package videos serves the HTTP endpoints for scripts, topics and videos.
package videos

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/scriptcast/models"
	"github.com/drewmudry/scriptcast/pipeline"
	"github.com/drewmudry/scriptcast/resolver"
	"github.com/drewmudry/scriptcast/topics"
	"github.com/drewmudry/scriptcast/worker"
)

type Handler struct {
	DB        *gorm.DB
	Topics    *topics.Store
	Processor *worker.Processor
	Resolver  pipeline.ScriptResolver
	Log       *zap.Logger
}

func NewHandler(db *gorm.DB, proc *worker.Processor, res pipeline.ScriptResolver, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{DB: db, Topics: topics.NewStore(db), Processor: proc, Resolver: res, Log: log}
}

// Register mounts the handlers on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/generate-script", h.GenerateScript)

	topicRoutes := rg.Group("/topics")
	{
		topicRoutes.POST("", h.AddTopics)
		topicRoutes.GET("", h.ListTopics)
	}

	videoRoutes := rg.Group("/videos")
	{
		videoRoutes.POST("", h.CreateVideo)
		videoRoutes.GET("", h.ListVideos)
		videoRoutes.GET("/:id", h.GetVideo)
	}
}

type GenerateScriptRequest struct {
	Topic     string `json:"topic" binding:"required"`
	DebugMode bool   `json:"debug_mode"`
}

type GenerateScriptResponse struct {
	Content string `json:"content"`

	// Filled in debug mode only.
	Outcome     string          `json:"outcome,omitempty"`
	SearchQuery string          `json:"search_query,omitempty"`
	Source      string          `json:"source,omitempty"`
	Trace       []resolver.Step `json:"trace,omitempty"`
}

// GenerateScript resolves a topic synchronously and returns the script.
func (h *Handler) GenerateScript(c *gin.Context) {
	var req GenerateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Resolver.Resolve(c.Request.Context(), req.Topic)
	if err != nil {
		h.Log.Error("Script generation failed", zap.String("topic", req.Topic), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate script"})
		return
	}
	if result.Outcome == resolver.OutcomeNoContext {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no usable context", "content": resolver.FallbackMessage})
		return
	}

	resp := GenerateScriptResponse{Content: result.Script}
	if req.DebugMode {
		resp.Outcome = result.Outcome.String()
		resp.SearchQuery = result.SearchQuery
		resp.Trace = result.Trace
		if result.Source != nil {
			resp.Source = result.Source.URL
		}
	}
	c.JSON(http.StatusOK, resp)
}

type AddTopicsRequest struct {
	Topics []string `json:"topics" binding:"required,min=1"`
}

func (h *Handler) AddTopics(c *gin.Context) {
	var req AddTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.Topics.Add(c.Request.Context(), req.Topics, "api")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add topics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (h *Handler) ListTopics(c *gin.Context) {
	list, err := h.Topics.List(c.Request.Context(), c.Query("status"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve topics"})
		return
	}
	c.JSON(http.StatusOK, list)
}

type CreateVideoRequest struct {
	// Topic is optional; without it the oldest pending topic is used.
	Topic string `json:"topic"`
}

// CreateVideo queues a pipeline run and returns the pending video.
func (h *Handler) CreateVideo(c *gin.Context) {
	var req CreateVideoRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	ctx := c.Request.Context()

	var (
		video *models.Video
		err   error
	)
	if req.Topic == "" {
		video, err = h.Processor.QueueNextTopic(ctx)
	} else {
		var topic *models.Topic
		if _, err = h.Topics.Add(ctx, []string{req.Topic}, "api"); err == nil {
			topic, err = h.Topics.GetByText(ctx, req.Topic)
		}
		if err == nil {
			video, err = h.Processor.QueueTopic(ctx, topic)
		}
	}

	if errors.Is(err, topics.ErrNoPendingTopics) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending topics"})
		return
	}
	if err != nil {
		h.Log.Error("Failed to queue video", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue video"})
		return
	}
	c.JSON(http.StatusAccepted, video)
}

func (h *Handler) ListVideos(c *gin.Context) {
	q := h.DB.WithContext(c.Request.Context()).Preload("Topic").Order("id desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if limit := queryLimit(c); limit > 0 {
		q = q.Limit(limit)
	}

	var videos []models.Video
	if err := q.Find(&videos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve videos"})
		return
	}
	c.JSON(http.StatusOK, videos)
}

func (h *Handler) GetVideo(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video ID"})
		return
	}

	var video models.Video
	if err := h.DB.WithContext(c.Request.Context()).Preload("Topic").First(&video, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}
	c.JSON(http.StatusOK, video)
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || n < 0 {
		return 50
	}
	return n
}
