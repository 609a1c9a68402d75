package mindmapai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"clippilot/internal/runtime"
	"clippilot/models"
)

// Generator turns a speaker-attributed transcript into a concept graph.
// The implementation must enforce the MindmapData shape; malformed model
// output is a pipeline failure, not something callers need to repair.
type Generator interface {
	Generate(ctx context.Context, transcript string) (*models.MindmapData, error)
}

// GeminiGenerator produces mindmaps with a Vertex AI Gemini model using
// schema-constrained JSON output.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator initializes the Vertex AI client from the standard
// GOOGLE_CLOUD_PROJECT / GOOGLE_CLOUD_LOCATION / GOOGLE_APPLICATION_CREDENTIALS
// environment variables.
func NewGeminiGenerator(ctx context.Context) (*GeminiGenerator, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	location := os.Getenv("GOOGLE_CLOUD_LOCATION")
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION must be set")
	}

	var opts []option.ClientOption
	if credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("create Vertex AI client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.0-flash-001")
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(
			"You turn video transcripts into hierarchical concept mindmaps. " +
				"Extract the central theme as the single main node, major topics as topic nodes, " +
				"supporting ideas as subtopic nodes and concrete facts as detail nodes. " +
				"Every edge must connect existing node ids. Keep labels short.",
		)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   mindmapSchema(),
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// mindmapSchema constrains the model output to the MindmapData shape.
func mindmapSchema() *genai.Schema {
	return &genai.Schema{
		Type:     genai.TypeObject,
		Required: []string{"title", "nodes", "edges"},
		Properties: map[string]*genai.Schema{
			"title": {Type: genai.TypeString},
			"nodes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:     genai.TypeObject,
					Required: []string{"id", "label", "category"},
					Properties: map[string]*genai.Schema{
						"id":          {Type: genai.TypeString},
						"label":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"category": {
							Type: genai.TypeString,
							Enum: []string{
								models.NodeCategoryMain,
								models.NodeCategoryTopic,
								models.NodeCategorySubtopic,
								models.NodeCategoryDetail,
							},
						},
					},
				},
			},
			"edges": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:     genai.TypeObject,
					Required: []string{"source", "target"},
					Properties: map[string]*genai.Schema{
						"source": {Type: genai.TypeString},
						"target": {Type: genai.TypeString},
					},
				},
			},
		},
	}
}

// Generate requests a mindmap for the transcript and decodes the structured
// response.
func (g *GeminiGenerator) Generate(ctx context.Context, transcript string) (*models.MindmapData, error) {
	prompt := "Create a concept mindmap for the following transcript:\n\n" + transcript

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("mindmap generation: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("mindmap generation returned no candidates")
	}

	var raw string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			raw += string(text)
		}
	}

	var data models.MindmapData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode mindmap output: %w", err)
	}
	if data.Title == "" || len(data.Nodes) == 0 {
		return nil, fmt.Errorf("mindmap output missing title or nodes")
	}
	return &data, nil
}

// Close releases the underlying Vertex AI client.
func (g *GeminiGenerator) Close() {
	g.client.Close()
}

// Disabled is a Generator used when Vertex AI credentials are absent. Every
// generation fails permanently with a configuration error.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, transcript string) (*models.MindmapData, error) {
	return nil, runtime.Permanent(fmt.Errorf("mindmap generator is not configured"))
}
