package server

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/service"
	"github.com/emrgen/panorama/internal/viewer"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// Handler exposes the project and panophoto services over HTTP.
type Handler struct {
	projects *service.ProjectService
	photos   *service.PanophotoService
}

func NewHandler(projects *service.ProjectService, photos *service.PanophotoService) *Handler {
	return &Handler{
		projects: projects,
		photos:   photos,
	}
}

type (
	CreateProjectReq struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	LevelReq struct {
		Name string `json:"name"`
	}

	StartReq struct {
		PanophotoID string `json:"panophotoId" binding:"required"`
	}

	MoveReq struct {
		XPosition *float64 `json:"xPosition" binding:"required"`
		YPosition *float64 `json:"yPosition" binding:"required"`
		LevelID   *string  `json:"levelId"`
	}

	LinkReq struct {
		TargetID string `json:"targetId" binding:"required"`
	}

	OffsetReq struct {
		AzimuthOffset *float64 `json:"azimuthOffset" binding:"required"`
	}
)

// Register mounts the API routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/healthz", func(c *gin.Context) { Success(c, "ok") })

	projects := g.Group("/projects")
	projects.GET("", h.ListProjects)
	projects.POST("", h.CreateProject)
	projects.GET("/active", h.GetActiveProject)
	projects.GET("/:id", h.GetProject)
	projects.DELETE("/:id", h.DeleteProject)
	projects.POST("/:id/activate", h.ActivateProject)
	projects.GET("/:id/starts", h.ResolveStarts)
	projects.PUT("/:id/start", h.SetProjectStart)
	projects.GET("/:id/panophotos", h.ListPhotos)
	projects.POST("/:id/levels", h.CreateLevel)
	projects.PUT("/:id/levels/:levelId", h.RenameLevel)
	projects.PUT("/:id/levels/:levelId/start", h.SetLevelStart)
	projects.PUT("/:id/levels/:levelId/background", h.SetLevelBackground)
	projects.DELETE("/:id/levels/:levelId/background", h.ClearLevelBackground)
	projects.GET("/:id/levels/:levelId/links", h.LinkLines)

	photos := g.Group("/panophotos")
	photos.POST("", h.CreatePhoto)
	photos.GET("/:id", h.GetPhoto)
	photos.DELETE("/:id", h.DeletePhoto)
	photos.PUT("/:id/position", h.MovePhoto)
	photos.POST("/:id/unplace", h.UnplacePhoto)
	photos.POST("/:id/links", h.LinkPhotos)
	photos.DELETE("/:id/links/:targetId", h.UnlinkPhotos)
	photos.PUT("/:id/links/:targetId/offset", h.SetLinkOffset)
	photos.GET("/:id/markers", h.Markers)
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, projects)
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	project, err := h.projects.CreateProject(c, req.Name, req.Description)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, project)
}

func (h *Handler) GetActiveProject(c *gin.Context) {
	project, err := h.projects.GetActiveProject(c)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.projects.GetProject(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) DeleteProject(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))
	result, err := h.projects.DeleteProject(c, c.Param("id"), force)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, cascadeWarnings(result))
}

func (h *Handler) ActivateProject(c *gin.Context) {
	project, err := h.projects.ActivateProject(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) ResolveStarts(c *gin.Context) {
	starts, err := h.projects.ResolveStarts(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, starts)
}

func (h *Handler) SetProjectStart(c *gin.Context) {
	var req StartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	project, err := h.projects.SetProjectStart(c, c.Param("id"), req.PanophotoID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) ListPhotos(c *gin.Context) {
	photos, err := h.photos.ListPhotos(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, photos)
}

func (h *Handler) CreateLevel(c *gin.Context) {
	var req LevelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	project, level, err := h.projects.CreateLevel(c, c.Param("id"), req.Name)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, gin.H{"project": project, "level": level})
}

func (h *Handler) RenameLevel(c *gin.Context) {
	var req LevelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	project, err := h.projects.RenameLevel(c, c.Param("id"), c.Param("levelId"), req.Name)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) SetLevelStart(c *gin.Context) {
	var req StartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	project, err := h.projects.SetLevelStart(c, c.Param("id"), c.Param("levelId"), req.PanophotoID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) SetLevelBackground(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		BadRequest(c, fmt.Errorf("%w: %v", service.ErrImageRequired, err))
		return
	}
	body, err := file.Open()
	if err != nil {
		BadRequest(c, err)
		return
	}
	defer body.Close()

	project, err := h.projects.SetLevelBackground(c, c.Param("id"), c.Param("levelId"), body,
		contentType(file), filepath.Ext(file.Filename))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) ClearLevelBackground(c *gin.Context) {
	project, _, err := h.projects.ClearLevelBackground(c, c.Param("id"), c.Param("levelId"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, project)
}

func (h *Handler) LinkLines(c *gin.Context) {
	project, level, err := h.projects.LoadProjectLevel(c, c.Param("id"), c.Param("levelId"))
	if err != nil {
		Error(c, err)
		return
	}

	photos, err := h.photos.ListPhotos(c, project.ID)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{
		"levelId":    level.ID,
		"links":      viewer.LinkLines(photos, level.ID),
		"levelStart": viewer.LevelStarts(project.LevelList(), photos)[level.ID],
	})
}

func (h *Handler) CreatePhoto(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		BadRequest(c, fmt.Errorf("%w: %v", service.ErrImageRequired, err))
		return
	}
	body, err := file.Open()
	if err != nil {
		BadRequest(c, err)
		return
	}
	defer body.Close()

	photo, err := h.photos.CreatePhoto(c, c.PostForm("project"), c.PostForm("name"), body,
		contentType(file), filepath.Ext(file.Filename))
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, photo)
}

func (h *Handler) GetPhoto(c *gin.Context) {
	photo, err := h.photos.GetPhoto(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, photo)
}

func (h *Handler) DeletePhoto(c *gin.Context) {
	result, err := h.photos.DeletePhoto(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, cascadeWarnings(result))
}

func (h *Handler) MovePhoto(c *gin.Context) {
	var req MoveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	pos := geometry.Point{X: *req.XPosition, Y: *req.YPosition}
	result, err := h.photos.MovePhoto(c, c.Param("id"), pos, req.LevelID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{
		"photo":               result.Photo,
		"affectedNeighborIds": result.AffectedNeighborIDs,
		"warnings":            cascadeWarnings(&result.CascadeResult),
	})
}

func (h *Handler) UnplacePhoto(c *gin.Context) {
	result, err := h.photos.UnplacePhoto(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{
		"photo":               result.Photo,
		"neighbors":           result.Neighbors,
		"affectedNeighborIds": result.AffectedNeighborIDs,
		"warnings":            cascadeWarnings(&result.CascadeResult),
	})
}

func (h *Handler) LinkPhotos(c *gin.Context) {
	var req LinkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	result, err := h.photos.LinkPhotos(c, c.Param("id"), req.TargetID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

func (h *Handler) UnlinkPhotos(c *gin.Context) {
	result, err := h.photos.UnlinkPhotos(c, c.Param("id"), c.Param("targetId"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

func (h *Handler) SetLinkOffset(c *gin.Context) {
	var req OffsetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	source, err := h.photos.SetLinkOffset(c, c.Param("id"), c.Param("targetId"), *req.AzimuthOffset)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"source": source})
}

// Markers renders the viewer markers of a panophoto.
func (h *Handler) Markers(c *gin.Context) {
	photo, err := h.photos.GetPhoto(c, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	neighbors, err := h.photos.Neighbors(c, photo)
	if err != nil {
		Error(c, err)
		return
	}

	adjust, _ := strconv.ParseBool(c.Query("adjust"))
	Success(c, viewer.BuildMarkers(photo, neighbors, viewer.MarkerOptions{
		HighlightTargetID: c.Query("highlight"),
		AdjustMode:        adjust,
	}))
}

func cascadeWarnings(result *service.CascadeResult) []string {
	if result == nil {
		return []string{}
	}
	return lo.Map(result.Warnings, func(err error, _ int) string { return err.Error() })
}

// contentType is the declared type of an upload, or the one of its extension
// when the client sent a generic type.
func contentType(file *multipart.FileHeader) string {
	declared := file.Header.Get("Content-Type")
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(file.Filename)); byExt != "" {
		return byExt
	}
	return declared
}
