// Package imagegen provides the image creation tool used by the interior
// designer agent.
package imagegen

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/zavatech/agent-concierge/internal/tools"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

// Config holds configuration for the image generation tool
type Config struct {
	Client     *openai.Client
	Deployment string
	Size       string
	Logger     logger.Logger
}

func imageSize(size string) openai.ImageGenerateParamsSize {
	switch size {
	case "1792x1024":
		return openai.ImageGenerateParamsSize1792x1024
	case "1024x1792":
		return openai.ImageGenerateParamsSize1024x1792
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}

// New creates the create_image tool definition
func New(cfg Config) (tools.Definition, error) {
	if cfg.Client == nil {
		return tools.Definition{}, fmt.Errorf("openai client is required")
	}
	if cfg.Deployment == "" {
		return tools.Definition{}, fmt.Errorf("image model deployment is required")
	}
	if cfg.Logger == nil {
		return tools.Definition{}, fmt.Errorf("logger is required")
	}

	log := cfg.Logger.WithFields(logger.StringField("tool", "create_image"))
	size := imageSize(cfg.Size)

	return tools.Definition{
		Name:        "create_image",
		Description: "Generate an image of a room design or product visualisation from a text description.",
		Parameters: tools.ObjectSchema(map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Detailed description of the image to generate",
			},
		}, "prompt"),
		Handler: func(ctx context.Context, args map[string]any) []tools.Record {
			prompt := tools.StringArg(args, "prompt")
			if prompt == "" {
				return []tools.Record{}
			}

			resp, err := cfg.Client.Images.Generate(ctx, openai.ImageGenerateParams{
				Prompt: prompt,
				Model:  openai.ImageModel(cfg.Deployment),
				N:      openai.Int(1),
				Size:   size,
			})
			if err != nil {
				log.Warn("Image generation failed", logger.ErrorField(err))
				return []tools.Record{}
			}
			if len(resp.Data) == 0 {
				log.Warn("Image generation returned no data")
				return []tools.Record{}
			}

			records := make([]tools.Record, 0, len(resp.Data))
			for _, img := range resp.Data {
				records = append(records, tools.Record{
					"url":    img.URL,
					"prompt": prompt,
				})
			}
			return records
		},
	}, nil
}
