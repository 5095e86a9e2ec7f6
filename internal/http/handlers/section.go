package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
	"github.com/yungbote/neurobridge-coursestore/internal/http/response"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
	"github.com/yungbote/neurobridge-coursestore/internal/services"
)

type SectionHandler struct {
	log     *logger.Logger
	service services.CourseTreeService
}

func NewSectionHandler(log *logger.Logger, service services.CourseTreeService) *SectionHandler {
	return &SectionHandler{
		log:     log.With("handler", "SectionHandler"),
		service: service,
	}
}

// GET /api/sections/:id
func (h *SectionHandler) GetSection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	section, err := h.service.GetSection(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondFailure(c, h.log, "GetSection", err)
		return
	}
	response.RespondOK(c, gin.H{"section": section})
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

// PATCH /api/sections/:id
func (h *SectionHandler) RenameSection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req renameRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.service.RenameSection(c.Request.Context(), domainagg.RenameSectionInput{
		Actor:     actorFrom(c),
		SectionID: id,
		Title:     req.Title,
	})
	if err != nil {
		respondFailure(c, h.log, "RenameSection", err)
		return
	}
	response.RespondOK(c, gin.H{"section": section})
}

type contentRequest struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

// PUT /api/sections/:id/content
//
// Derived formats that could not be produced are listed under
// "conversion"; the write itself still succeeds.
func (h *SectionHandler) UpdateContent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req contentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.UpdateContent(c.Request.Context(), domainagg.UpdateContentInput{
		Actor:        actorFrom(c),
		SectionID:    id,
		Text:         req.Text,
		SourceFormat: dc.Format(req.Format),
	})
	if err != nil {
		respondFailure(c, h.log, "UpdateContent", err)
		return
	}
	response.RespondOK(c, gin.H{"section": res.Section, "conversion": res.Report})
}

type moveRequest struct {
	ParentID        *uuid.UUID `json:"parent_id"`
	Order           *int       `json:"order"`
	ExpectedVersion *int       `json:"expected_version"`
}

// POST /api/sections/:id/move
func (h *SectionHandler) MoveSection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req moveRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.service.Reparent(c.Request.Context(), domainagg.ReparentInput{
		Actor:           actorFrom(c),
		SectionID:       id,
		NewParentID:     req.ParentID,
		NewOrder:        req.Order,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondFailure(c, h.log, "MoveSection", err)
		return
	}
	response.RespondOK(c, gin.H{"section": section})
}

type deleteSectionQuery struct {
	Cascade         bool `form:"cascade"`
	ExpectedVersion *int `form:"expected_version"`
}

// DELETE /api/sections/:id
func (h *SectionHandler) DeleteSection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var q deleteSectionQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := h.service.DeleteSection(c.Request.Context(), domainagg.DeleteSectionInput{
		Actor:           actorFrom(c),
		SectionID:       id,
		Cascade:         q.Cascade,
		ExpectedVersion: q.ExpectedVersion,
	})
	if err != nil {
		respondFailure(c, h.log, "DeleteSection", err)
		return
	}
	response.RespondOK(c, gin.H{
		"course_id":         res.CourseID,
		"deleted_ids":       res.DeletedIDs,
		"reparented_ids":    res.ReparentedIDs,
		"structure_version": res.StructureVersion,
	})
}

type completionRequest struct {
	Done *bool `json:"done" binding:"required"`
}

// PUT /api/sections/:id/completion
func (h *SectionHandler) SetCompletion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req completionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.service.SetCompletion(c.Request.Context(), domainagg.SetCompletionInput{
		Actor:     actorFrom(c),
		SectionID: id,
		Done:      *req.Done,
		At:        time.Now().UTC(),
	})
	if err != nil {
		respondFailure(c, h.log, "SetCompletion", err)
		return
	}
	response.RespondOK(c, gin.H{"section": section})
}
