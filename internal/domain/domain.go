package domain

import (
	"github.com/yungbote/neurobridge-coursestore/internal/domain/content"
	"github.com/yungbote/neurobridge-coursestore/internal/domain/learning"
)

type Course = learning.Course
type Section = learning.Section
type CourseForkRecord = learning.CourseForkRecord

type Representation = content.Representation
type Document = content.Document
type Format = content.Format

const DefaultMaxDepth = learning.DefaultMaxDepth
