package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Mindmap is a derived, replaceable concept graph for a Transcription.
// There is at most one Mindmap per transcription (unique on TranscriptionID);
// regeneration resets the existing row instead of inserting a second one.
// Status is completed if and only if Data is non-null.
type Mindmap struct {
	ID              uuid.UUID       `json:"id"`
	TranscriptionID uuid.UUID       `json:"transcription_id"`
	Title           string          `json:"title"`
	Status          string          `json:"status"`
	Data            json.RawMessage `json:"data,omitempty"` // Nullable JSONB
	CreatedAt       time.Time       `json:"created_at"`
}

// Mindmap node categories, from root concept down to leaf details.
const (
	NodeCategoryMain     = "main"
	NodeCategoryTopic    = "topic"
	NodeCategorySubtopic = "subtopic"
	NodeCategoryDetail   = "detail"
)

// MindmapData is the structured graph produced by the generative model.
// The generation request constrains the model output to exactly this shape.
type MindmapData struct {
	Title string        `json:"title"`
	Nodes []MindmapNode `json:"nodes"`
	Edges []MindmapEdge `json:"edges"`
}

// MindmapNode is a single concept in the graph.
type MindmapNode struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

// MindmapEdge connects two nodes by their IDs.
type MindmapEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
