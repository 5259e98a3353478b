package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schemedesk/district-kb/constants"
	"github.com/schemedesk/district-kb/internal/entity"
	"github.com/schemedesk/district-kb/internal/llm"
)

// Extractor turns one text window into one partial structured extraction.
type Extractor interface {
	Extract(ctx context.Context, chunk, district, date string, chunkNum, totalChunks int) (*entity.StructuredExtraction, error)
}

// ChunkExtractor builds the extraction prompt, calls the completion service
// and leniently parses the model's JSON answer.
type ChunkExtractor struct {
	completer   llm.Completer
	taxonomy    []constants.Sector
	temperature float32
	logger      *slog.Logger
}

func NewChunkExtractor(completer llm.Completer, taxonomy []constants.Sector, temperature float32, logger *slog.Logger) *ChunkExtractor {
	if temperature <= 0 {
		temperature = 0.3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkExtractor{
		completer:   completer,
		taxonomy:    taxonomy,
		temperature: temperature,
		logger:      logger,
	}
}

func (e *ChunkExtractor) Extract(ctx context.Context, chunk, district, date string, chunkNum, totalChunks int) (*entity.StructuredExtraction, error) {
	reqID := uuid.New().String()
	start := time.Now()

	prompt := llm.BuildExtractionPrompt(llm.ExtractionPromptRequest{
		DocumentText: chunk,
		DistrictName: district,
		UploadDate:   date,
		Taxonomy:     e.taxonomy,
		ChunkNum:     chunkNum,
		TotalChunks:  totalChunks,
	})

	opts := llm.DefaultOptions()
	opts.Temperature = e.temperature
	resp, err := e.completer.Complete(ctx, prompt, opts)
	if err != nil {
		e.logger.Warn("extract.chunk.completion_failed",
			"req_id", reqID, "chunk", chunkNum, "total", totalChunks, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("chunk %d/%d completion: %w", chunkNum, totalChunks, err)
	}

	payload, err := llm.ExtractJSONObject(resp)
	if err != nil {
		e.logger.Warn("extract.chunk.parse_failed",
			"req_id", reqID, "chunk", chunkNum, "total", totalChunks, "error", err,
			"response_preview", preview(resp))
		return nil, fmt.Errorf("chunk %d/%d parse: %w", chunkNum, totalChunks, err)
	}

	var wire wireExtraction
	if err := json.Unmarshal(payload, &wire); err != nil {
		e.logger.Warn("extract.chunk.decode_failed",
			"req_id", reqID, "chunk", chunkNum, "total", totalChunks, "error", err)
		return nil, fmt.Errorf("chunk %d/%d decode: %w", chunkNum, totalChunks, err)
	}

	result := wire.toEntity(district, date)
	e.logger.Info("extract.chunk.ok",
		"req_id", reqID, "chunk", chunkNum, "total", totalChunks,
		"sectors", len(result.Sectors),
		"elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}

// Wire shapes as the model emits them: sectors as a list. The old shape with
// action_points directly under the sub-category is still accepted.
type wireExtraction struct {
	District   string       `json:"district"`
	UploadDate string       `json:"upload_date"`
	Sectors    []wireSector `json:"sectors"`
}

type wireSector struct {
	SectorName    string            `json:"sector_name"`
	SubCategories []wireSubCategory `json:"sub_categories"`
}

type wireSubCategory struct {
	SubCategoryName string            `json:"sub_category_name"`
	Information     *wireInformation  `json:"information"`
	ActionPoints    []wireActionPoint `json:"action_points"`
}

type wireInformation struct {
	ActionPoints      []wireActionPoint `json:"action_points"`
	AdditionalDetails map[string]any    `json:"additional_details"`
}

type wireActionPoint struct {
	ActionName            string  `json:"action_name"`
	CurrentStatus         *string `json:"current_status"`
	AchievementPercentage any     `json:"achievement_percentage"`
	DataSource            *string `json:"data_source"`
	Remarks               *string `json:"remarks"`
}

func (w wireExtraction) toEntity(district, date string) *entity.StructuredExtraction {
	out := entity.NewStructuredExtraction(district, date)
	for _, sector := range w.Sectors {
		if sector.SectorName == "" {
			continue
		}
		for _, sub := range sector.SubCategories {
			if sub.SubCategoryName == "" {
				continue
			}
			points := sub.ActionPoints
			var details map[string]any
			if sub.Information != nil {
				points = sub.Information.ActionPoints
				details = sub.Information.AdditionalDetails
			}
			if len(points) == 0 && len(details) == 0 {
				continue
			}
			rec := out.Record(sector.SectorName, sub.SubCategoryName)
			for _, p := range points {
				if p.ActionName == "" {
					continue
				}
				rec.ActionPoints = append(rec.ActionPoints, entity.ActionPoint{
					ActionName:            p.ActionName,
					CurrentStatus:         p.CurrentStatus,
					AchievementPercentage: coercePercent(p.AchievementPercentage),
					DataSource:            p.DataSource,
					Remarks:               p.Remarks,
				})
			}
			for k, v := range details {
				rec.AdditionalDetails[k] = v
			}
		}
	}
	return out
}

// coercePercent tolerates the model emitting numbers as strings ("75", "75%").
func coercePercent(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

func preview(s string) string {
	if len(s) > 500 {
		return s[:500]
	}
	return s
}
