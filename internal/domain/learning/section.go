package learning

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

// Section is one node of a course tree. Content is stored as three slots
// mirroring content.Representation; only the aggregate writes them.
type Section struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID  `gorm:"type:uuid;not null;index:idx_section_course_parent,priority:1" json:"course_id"`
	Course   *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	ParentID *uuid.UUID `gorm:"type:uuid;index:idx_section_course_parent,priority:2" json:"parent_id,omitempty"`

	Order int    `gorm:"column:sibling_order;not null;default:0" json:"order"`
	Depth int    `gorm:"column:depth;not null;default:0" json:"depth"`
	Title string `gorm:"column:title;not null" json:"title"`

	StructuredText       string         `gorm:"column:structured_text;type:text" json:"structured_text"`
	StructuredTextStatus string         `gorm:"column:structured_text_status;not null;default:'absent'" json:"structured_text_status"`
	StructuredTextReason string         `gorm:"column:structured_text_reason" json:"structured_text_reason,omitempty"`
	Markup               string         `gorm:"column:markup;type:text" json:"markup"`
	MarkupStatus         string         `gorm:"column:markup_status;not null;default:'absent'" json:"markup_status"`
	MarkupReason         string         `gorm:"column:markup_reason" json:"markup_reason,omitempty"`
	RichDocument         datatypes.JSON `gorm:"column:rich_document" json:"rich_document,omitempty"`
	RichDocumentStatus   string         `gorm:"column:rich_document_status;not null;default:'absent'" json:"rich_document_status"`
	RichDocumentReason   string         `gorm:"column:rich_document_reason" json:"rich_document_reason,omitempty"`
	PrimaryFormat        string         `gorm:"column:primary_format;not null;default:'structured_text'" json:"primary_format"`
	ContentHash          string         `gorm:"column:content_hash" json:"content_hash,omitempty"`

	HasContent      bool `gorm:"column:has_content;not null;default:false" json:"has_content"`
	WordCount       int  `gorm:"column:word_count;not null;default:0" json:"word_count"`
	ReadTimeMinutes int  `gorm:"column:read_time_minutes;not null;default:0" json:"read_time_minutes"`

	IsCompleted bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Section) TableName() string { return "course_section" }

func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.PrimaryFormat == "" {
		s.PrimaryFormat = string(content.FormatStructuredText)
	}
	for _, st := range []*string{&s.StructuredTextStatus, &s.MarkupStatus, &s.RichDocumentStatus} {
		if *st == "" {
			*st = string(content.StatusAbsent)
		}
	}
	return nil
}

// IsRoot reports whether the section sits at the top of its course.
func (s *Section) IsRoot() bool { return s.ParentID == nil }

// Representation decodes the stored content columns.
func (s *Section) Representation() (content.Representation, error) {
	rep := content.Representation{
		StructuredText: content.TextSlot{Value: s.StructuredText, Status: statusOrAbsent(s.StructuredTextStatus), Reason: s.StructuredTextReason},
		Markup:         content.TextSlot{Value: s.Markup, Status: statusOrAbsent(s.MarkupStatus), Reason: s.MarkupReason},
		RichDocument:   content.DocumentSlot{Status: statusOrAbsent(s.RichDocumentStatus), Reason: s.RichDocumentReason},
		Primary:        content.Format(s.PrimaryFormat),
	}
	if rep.Primary == "" {
		rep.Primary = content.FormatStructuredText
	}
	if len(s.RichDocument) > 0 && string(s.RichDocument) != "null" {
		var doc content.Document
		if err := json.Unmarshal(s.RichDocument, &doc); err != nil {
			return rep, fmt.Errorf("section %s: decode rich document: %w", s.ID, err)
		}
		rep.RichDocument.Document = &doc
	}
	return rep, nil
}

// ApplyRepresentation writes a representation into the content columns.
func (s *Section) ApplyRepresentation(rep content.Representation) error {
	s.StructuredText = rep.StructuredText.Value
	s.StructuredTextStatus = string(rep.StructuredText.Status)
	s.StructuredTextReason = rep.StructuredText.Reason
	s.Markup = rep.Markup.Value
	s.MarkupStatus = string(rep.Markup.Status)
	s.MarkupReason = rep.Markup.Reason
	s.RichDocumentStatus = string(rep.RichDocument.Status)
	s.RichDocumentReason = rep.RichDocument.Reason
	s.RichDocument = nil
	if rep.RichDocument.Document != nil {
		b, err := json.Marshal(rep.RichDocument.Document)
		if err != nil {
			return fmt.Errorf("encode rich document: %w", err)
		}
		s.RichDocument = datatypes.JSON(b)
	}
	s.PrimaryFormat = string(rep.Primary)
	s.HasContent = rep.HasContent()
	return nil
}

// ContentColumns lists the column updates that persist the content fields.
func (s *Section) ContentColumns() map[string]any {
	return map[string]any{
		"structured_text":        s.StructuredText,
		"structured_text_status": s.StructuredTextStatus,
		"structured_text_reason": s.StructuredTextReason,
		"markup":                 s.Markup,
		"markup_status":          s.MarkupStatus,
		"markup_reason":          s.MarkupReason,
		"rich_document":          s.RichDocument,
		"rich_document_status":   s.RichDocumentStatus,
		"rich_document_reason":   s.RichDocumentReason,
		"primary_format":         s.PrimaryFormat,
		"content_hash":           s.ContentHash,
		"has_content":            s.HasContent,
		"word_count":             s.WordCount,
		"read_time_minutes":      s.ReadTimeMinutes,
	}
}

func statusOrAbsent(s string) content.Status {
	if s == "" {
		return content.StatusAbsent
	}
	return content.Status(s)
}
