// Package content renders the outreach message for a lead: an AI-written
// subject and body from AWS Bedrock, with a liquid-template fallback that
// keeps campaigns moving when the model is unavailable. Generation failures
// are routine and must never stall dispatch.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/outreach-engine/internal/domain"
)

// DefaultModelID is the Bedrock model used when none is configured.
const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

// modelInvoker is the slice of the Bedrock client the generator uses;
// narrowed so tests can fake the model.
type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// bedrockMessage mirrors the Anthropic messages payload shape.
type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BedrockGenerator writes one-off outreach messages with a Bedrock-hosted
// model. The model is asked for a strict JSON object so the reply parses
// into a Message without scraping.
type BedrockGenerator struct {
	client  modelInvoker
	modelID string
	region  string
}

// NewBedrockGenerator loads the default AWS config and wires the Bedrock
// runtime client.
func NewBedrockGenerator(modelID string) (*BedrockGenerator, error) {
	ctx := context.Background()

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if modelID == "" {
		modelID = DefaultModelID
	}

	g := &BedrockGenerator{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		region:  region,
	}

	log.Printf("[Content] Bedrock generator ready: model=%s region=%s", modelID, region)
	return g, nil
}

// Generate asks the model for a subject and body for one lead.
func (g *BedrockGenerator) Generate(ctx context.Context, leadID string, brand domain.BrandContext) (domain.Message, error) {
	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		System:           systemPrompt(brand),
		Messages: []bedrockMessage{{
			Role: "user",
			Content: []bedrockContentBlock{{
				Type: "text",
				Text: fmt.Sprintf("Write the outreach email for lead reference %s. Respond with ONLY a JSON object: {\"subject\": \"...\", \"body\": \"...\"}", leadID),
			}},
		}},
		Temperature: 0.7,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("bedrock API error: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return domain.Message{}, fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	msg, err := parseMessageJSON(text.String())
	if err != nil {
		return domain.Message{}, err
	}

	log.Printf("[Content] Generated message for lead (in: %d tokens, out: %d tokens)",
		response.Usage.InputTokens, response.Usage.OutputTokens)
	return msg, nil
}

// parseMessageJSON tolerates models that wrap the JSON object in prose or
// code fences by extracting the outermost object.
func parseMessageJSON(text string) (domain.Message, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return domain.Message{}, fmt.Errorf("model reply contains no JSON object")
	}

	var msg domain.Message
	if err := json.Unmarshal([]byte(text[start:end+1]), &msg); err != nil {
		return domain.Message{}, fmt.Errorf("model reply is not valid message JSON: %w", err)
	}
	if msg.IsEmpty() {
		return domain.Message{}, fmt.Errorf("model reply is an empty message")
	}
	return msg, nil
}

func systemPrompt(brand domain.BrandContext) string {
	return fmt.Sprintf(`You write concise, personal B2B outreach emails for %s, makers of %s.
Voice: %s. Value proposition: %s. Close with this call to action: %s.
Hard rules: under 120 words, no spam-trigger phrasing, no placeholder brackets, plain text only.`,
		brand.CompanyName, brand.ProductName, brand.SenderName, brand.ValueProp, brand.CallToAction)
}
