package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/bottler-outreach/internal/config"
	"github.com/ignite/bottler-outreach/internal/report"
)

// BedrockGenerator generates drafts through AWS Bedrock (Claude).
// All data stays within AWS; nothing leaves the account boundary.
type BedrockGenerator struct {
	client  *bedrockruntime.Client
	modelID string
	prompts *PromptBuilder
}

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
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockGenerator creates a Bedrock-backed generator using the
// default AWS credential chain.
func NewBedrockGenerator(cfg config.GenerationConfig) (*BedrockGenerator, error) {
	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}

	region := cfg.AWSRegion
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	modelID := cfg.BedrockModelID
	if modelID == "" {
		modelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	log.Printf("[draft] Bedrock generator initialized with model=%s, region=%s", modelID, region)

	return &BedrockGenerator{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		modelID: modelID,
		prompts: prompts,
	}, nil
}

// Generate renders the group prompt and invokes the Bedrock model.
func (b *BedrockGenerator) Generate(ctx context.Context, groupName string, rows []*report.Row) (string, string, error) {
	prompt, err := b.prompts.Build(groupName, rows)
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: err}
	}

	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        2000,
		Temperature:      0.7,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: prompt}}},
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return "", "", classifyBedrockError(err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	var responseText string
	for _, content := range response.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	log.Printf("[draft] Bedrock generated draft for %q (in: %d tokens, out: %d tokens)",
		groupName, response.Usage.InputTokens, response.Usage.OutputTokens)

	subject, htmlBody, err := parseDraftJSON(responseText)
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: err}
	}
	return subject, htmlBody, nil
}

// classifyBedrockError buckets SDK errors by their exception name, since
// the smithy error types do not carry HTTP status here.
func classifyBedrockError(err error) *GenerationError {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "ThrottlingException"):
		return &GenerationError{Kind: GenQuota, Err: err}
	case strings.Contains(errStr, "AccessDeniedException"),
		strings.Contains(errStr, "UnrecognizedClientException"),
		strings.Contains(errStr, "ExpiredTokenException"):
		return &GenerationError{Kind: GenCredential, Err: err}
	default:
		return classifyTransportError(fmt.Errorf("Bedrock API error: %w", err))
	}
}
