package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
	"github.com/yungbote/neurobridge-coursestore/internal/http/response"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/hierarchy"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
	"github.com/yungbote/neurobridge-coursestore/internal/services"
)

type CourseHandler struct {
	log     *logger.Logger
	service services.CourseTreeService
}

func NewCourseHandler(log *logger.Logger, service services.CourseTreeService) *CourseHandler {
	return &CourseHandler{
		log:     log.With("handler", "CourseHandler"),
		service: service,
	}
}

type createCourseRequest struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	IsPublic         bool   `json:"is_public"`
	MaxDepth         int    `json:"max_depth" binding:"omitempty,min=0"`
	GenerationModel  string `json:"generation_model"`
	GenerationPrompt string `json:"generation_prompt"`
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), domainagg.CreateCourseInput{
		Actor:            actorFrom(c),
		Title:            req.Title,
		Description:      req.Description,
		IsPublic:         req.IsPublic,
		MaxDepth:         req.MaxDepth,
		GenerationModel:  req.GenerationModel,
		GenerationPrompt: req.GenerationPrompt,
	})
	if err != nil {
		h.fail(c, "CreateCourse", err)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

// GET /api/courses
func (h *CourseHandler) ListUserCourses(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	actor := actorFrom(c)
	courses, err := h.service.ListUserCourses(c.Request.Context(), actor.UserID, services.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.fail(c, "ListUserCourses", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/public
func (h *CourseHandler) ListPublicCourses(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	courses, err := h.service.ListPublicCourses(c.Request.Context(), services.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.fail(c, "ListPublicCourses", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	course, err := h.service.GetCourse(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, "GetCourse", err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

type visibilityRequest struct {
	IsPublic *bool `json:"is_public" binding:"required"`
}

// PATCH /api/courses/:id/visibility
func (h *CourseHandler) SetVisibility(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req visibilityRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.service.SetVisibility(c.Request.Context(), domainagg.SetVisibilityInput{
		Actor:    actorFrom(c),
		CourseID: id,
		IsPublic: *req.IsPublic,
	})
	if err != nil {
		h.fail(c, "SetVisibility", err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCourse(c.Request.Context(), domainagg.DeleteCourseInput{Actor: actorFrom(c), CourseID: id}); err != nil {
		h.fail(c, "DeleteCourse", err)
		return
	}
	response.RespondNoContent(c)
}

type treeQuery struct {
	MaxDepth       *int `form:"max_depth"`
	IncludeContent bool `form:"include_content"`
}

// GET /api/courses/:id/tree
func (h *CourseHandler) GetTree(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var q treeQuery
	if !bindQuery(c, &q) {
		return
	}
	view, err := h.service.BuildTree(c.Request.Context(), actorFrom(c), id, hierarchy.Options{
		MaxDepth:       q.MaxDepth,
		IncludeContent: q.IncludeContent,
	})
	if err != nil {
		h.fail(c, "GetTree", err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/courses/:id/progress
func (h *CourseHandler) GetProgress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	snap, err := h.service.ComputeProgress(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, "GetProgress", err)
		return
	}
	response.RespondOK(c, gin.H{"progress": snap})
}

// GET /api/courses/:id/integrity
//
// Owner only. The report is returned with 200 even when checks fail.
func (h *CourseHandler) CheckIntegrity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor := actorFrom(c)
	course, err := h.service.GetCourse(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, "CheckIntegrity", err)
		return
	}
	if course.UserID != actor.UserID {
		h.fail(c, "CheckIntegrity", domainagg.NewError(domainagg.CodeOwnershipViolation, "CheckIntegrity", "only the owner can check integrity", nil))
		return
	}
	report, err := h.service.CheckInvariants(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "CheckIntegrity", err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// POST /api/courses/:id/fork
func (h *CourseHandler) ForkCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service.ForkCourse(c.Request.Context(), domainagg.ForkCourseInput{Actor: actorFrom(c), CourseID: id})
	if err != nil {
		h.fail(c, "ForkCourse", err)
		return
	}
	response.RespondCreated(c, gin.H{
		"course":        res.Course,
		"record":        res.Record,
		"section_count": res.SectionCount,
	})
}

type forksQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=0"`
}

// GET /api/courses/:id/forks
func (h *CourseHandler) ListForks(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var q forksQuery
	if !bindQuery(c, &q) {
		return
	}
	records, err := h.service.ListForkRecords(c.Request.Context(), actorFrom(c), id, q.Limit)
	if err != nil {
		h.fail(c, "ListForks", err)
		return
	}
	response.RespondOK(c, gin.H{"forks": records})
}

type createSectionRequest struct {
	ParentID        *uuid.UUID `json:"parent_id"`
	Title           string     `json:"title" binding:"required"`
	Content         string     `json:"content"`
	Format          string     `json:"format"`
	ExpectedVersion *int       `json:"expected_version"`
}

// POST /api/courses/:id/sections
func (h *CourseHandler) CreateSection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req createSectionRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.CreateSection(c.Request.Context(), domainagg.CreateSectionInput{
		Actor:           actorFrom(c),
		CourseID:        id,
		ParentID:        req.ParentID,
		Title:           req.Title,
		Content:         req.Content,
		SourceFormat:    dc.Format(req.Format),
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		h.fail(c, "CreateSection", err)
		return
	}
	response.RespondCreated(c, gin.H{"section": res.Section, "conversion": res.Report})
}

func (h *CourseHandler) fail(c *gin.Context, op string, err error) {
	respondFailure(c, h.log, op, err)
}
