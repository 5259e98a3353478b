package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schemedesk/district-kb/constants"
	"github.com/schemedesk/district-kb/internal/async"
	"github.com/schemedesk/district-kb/internal/common"
	"github.com/schemedesk/district-kb/internal/entity"
	"github.com/schemedesk/district-kb/internal/export"
	"github.com/schemedesk/district-kb/internal/extract"
	"github.com/schemedesk/district-kb/internal/llm"
	"github.com/schemedesk/district-kb/internal/repository"
)

// Handler holds the dependencies the HTTP surface glues together.
type Handler struct {
	districts   repository.DistrictRepository
	documents   repository.DocumentRepository
	extractions repository.ExtractionRepository
	pipeline    *extract.Service
	exporter    *export.Service
	queue       *async.ExtractQueue
	completer   llm.Completer
	taxonomy    []constants.Sector
	uploadDir   string
	chatTemp    float32
	logger      *slog.Logger
}

type HandlerConfig struct {
	Districts   repository.DistrictRepository
	Documents   repository.DocumentRepository
	Extractions repository.ExtractionRepository
	Pipeline    *extract.Service
	Exporter    *export.Service
	Queue       *async.ExtractQueue
	Completer   llm.Completer
	Taxonomy    []constants.Sector
	UploadDir   string
	ChatTemp    float32
	Logger      *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chatTemp := cfg.ChatTemp
	if chatTemp <= 0 {
		chatTemp = 0.7
	}
	return &Handler{
		districts:   cfg.Districts,
		documents:   cfg.Documents,
		extractions: cfg.Extractions,
		pipeline:    cfg.Pipeline,
		exporter:    cfg.Exporter,
		queue:       cfg.Queue,
		completer:   cfg.Completer,
		taxonomy:    cfg.Taxonomy,
		uploadDir:   cfg.UploadDir,
		chatTemp:    chatTemp,
		logger:      logger,
	}
}

func (h *Handler) abortError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Upload receives a plain-text report, stores it as a document and runs
// extraction synchronously so the caller sees the per-key outcome.
func (h *Handler) Upload(c *gin.Context) {
	districtName := strings.TrimSpace(c.PostForm("district"))
	if districtName == "" {
		h.abortError(c, common.NewAppError("MISSING_DISTRICT", "district form field is required", common.ErrInvalidInput))
		return
	}
	uploadDate := strings.TrimSpace(c.PostForm("date"))
	if uploadDate == "" {
		uploadDate = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", uploadDate); err != nil {
		h.abortError(c, common.NewAppError("BAD_DATE", "date must be YYYY-MM-DD", common.ErrInvalidInput))
		return
	}
	uploadedBy := strings.TrimSpace(c.PostForm("uploaded_by"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.abortError(c, common.NewAppError("MISSING_FILE", "file form field is required", common.ErrInvalidInput))
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".txt") {
		h.abortError(c, common.NewAppError("BAD_FILE_TYPE", "only .txt documents are accepted", common.ErrInvalidInput))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.abortError(c, err)
		return
	}
	defer src.Close()
	raw, err := io.ReadAll(src)
	if err != nil {
		h.abortError(c, err)
		return
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		h.abortError(c, common.NewAppError("EMPTY_FILE", "uploaded document is empty", common.ErrInvalidInput))
		return
	}

	district, err := h.districts.GetOrCreate(c.Request.Context(), districtName)
	if err != nil {
		h.abortError(c, err)
		return
	}

	storedPath := ""
	if h.uploadDir != "" {
		storedPath = filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.NewString()[:8], filepath.Base(fileHeader.Filename)))
		if err := os.WriteFile(storedPath, raw, 0o644); err != nil {
			h.logger.Warn("upload.save_failed", "path", storedPath, "error", err)
			storedPath = ""
		}
	}

	docID, err := h.documents.Create(c.Request.Context(), &entity.Document{
		DistrictID: district.ID,
		FileName:   filepath.Base(fileHeader.Filename),
		FilePath:   storedPath,
		UploadDate: uploadDate,
		UploadedBy: uploadedBy,
		RawText:    text,
	})
	if err != nil {
		h.abortError(c, err)
		return
	}

	result, err := h.pipeline.ExtractAndStore(c.Request.Context(), extract.ExtractInput{
		DocumentID: docID,
		DistrictID: district.ID,
		District:   district.Name,
		Text:       text,
		UploadDate: uploadDate,
	})
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id": docID,
		"district":    district.Name,
		"result":      result,
	})
}

func (h *Handler) ListDistricts(c *gin.Context) {
	districts, err := h.districts.List(c.Request.Context())
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"districts": districts})
}

func (h *Handler) DistrictNames(c *gin.Context) {
	names, err := h.districts.Names(c.Request.Context())
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"districts": names})
}

// DistrictData returns the latest rows for a district with decoded payloads.
// Optional sector and sub_category query filters narrow the result.
func (h *Handler) DistrictData(c *gin.Context) {
	district, rows, ok := h.latestRows(c)
	if !ok {
		return
	}
	type item struct {
		SectorName  string                    `json:"sector_name"`
		SubCategory string                    `json:"sub_category"`
		VersionDate string                    `json:"version_date"`
		FileName    string                    `json:"file_name"`
		Data        *entity.SubCategoryRecord `json:"data"`
	}
	out := make([]item, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			h.logger.Warn("district.data_decode_failed",
				"sector", row.SectorName, "sub_category", row.SubCategory, "error", err)
			continue
		}
		out = append(out, item{
			SectorName:  row.SectorName,
			SubCategory: row.SubCategory,
			VersionDate: row.VersionDate,
			FileName:    row.FileName,
			Data:        rec,
		})
	}
	c.JSON(http.StatusOK, gin.H{"district": district.Name, "data": out})
}

// DistrictStructured returns the latest knowledge in the nested
// sector → sub-category shape the extraction pipeline produces.
func (h *Handler) DistrictStructured(c *gin.Context) {
	district, rows, ok := h.latestRows(c)
	if !ok {
		return
	}
	sectors := map[string]map[string]*entity.SubCategoryRecord{}
	versionDate := ""
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			continue
		}
		if sectors[row.SectorName] == nil {
			sectors[row.SectorName] = map[string]*entity.SubCategoryRecord{}
		}
		sectors[row.SectorName][row.SubCategory] = rec
		if row.VersionDate > versionDate {
			versionDate = row.VersionDate
		}
	}
	c.JSON(http.StatusOK, entity.StructuredExtraction{
		District:   district.Name,
		UploadDate: versionDate,
		Sectors:    sectors,
	})
}

func (h *Handler) DistrictAnalytics(c *gin.Context) {
	district, rows, ok := h.latestRows(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"district": district.Name,
		"sectors":  extract.ComputeSectorAnalytics(rows),
	})
}

func (h *Handler) DistrictHistory(c *gin.Context) {
	district, err := h.districts.GetByName(c.Request.Context(), c.Param("district"))
	if err != nil {
		h.abortError(c, err)
		return
	}
	rows, err := h.extractions.ListHistory(c.Request.Context(), district.ID)
	if err != nil {
		h.abortError(c, err)
		return
	}
	type item struct {
		SectorName  string `json:"sector_name"`
		SubCategory string `json:"sub_category"`
		VersionDate string `json:"version_date"`
		IsLatest    bool   `json:"is_latest"`
		FileName    string `json:"file_name"`
		UploadedBy  string `json:"uploaded_by"`
	}
	out := make([]item, 0, len(rows))
	for _, row := range rows {
		out = append(out, item{
			SectorName:  row.SectorName,
			SubCategory: row.SubCategory,
			VersionDate: row.VersionDate,
			IsLatest:    row.IsLatest,
			FileName:    row.FileName,
			UploadedBy:  row.UploadedBy,
		})
	}
	c.JSON(http.StatusOK, gin.H{"district": district.Name, "history": out})
}

func (h *Handler) DistrictExport(c *gin.Context) {
	district, rows, ok := h.latestRows(c)
	if !ok {
		return
	}
	data, err := h.exporter.Workbook(district.Name, rows)
	if err != nil {
		h.abortError(c, err)
		return
	}
	fileName := fmt.Sprintf("%s_knowledge_%s.xlsx", strings.ReplaceAll(district.Name, " ", "_"), time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// DeleteDistrict removes the district, its documents and extractions, then
// best-effort deletes stored files from the upload directory.
func (h *Handler) DeleteDistrict(c *gin.Context) {
	res, err := h.districts.Delete(c.Request.Context(), c.Param("district"))
	if err != nil {
		h.abortError(c, err)
		return
	}
	for _, p := range res.FilePaths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("district.file_remove_failed", "path", p, "error", err)
		}
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Categories(c *gin.Context) {
	stored, err := h.extractions.Categories(c.Request.Context())
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"taxonomy": h.taxonomy,
		"stored":   stored,
	})
}

// ReExtract queues a fresh pipeline run over the stored document text.
func (h *Handler) ReExtract(c *gin.Context) {
	documentID, err := strconv.ParseInt(c.Param("document_id"), 10, 64)
	if err != nil {
		h.abortError(c, common.NewAppError("BAD_DOCUMENT_ID", "document_id must be an integer", common.ErrInvalidInput))
		return
	}
	if _, err := h.documents.GetByID(c.Request.Context(), documentID); err != nil {
		h.abortError(c, err)
		return
	}
	traceID := uuid.NewString()
	if err := h.queue.Enqueue(c.Request.Context(), async.Job{
		DocumentID:  documentID,
		SubmittedAt: time.Now(),
		TraceID:     traceID,
	}); err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"document_id": documentID, "trace_id": traceID, "status": "queued"})
}

type chatRequest struct {
	District string `json:"district" binding:"required"`
	Question string `json:"question" binding:"required"`
}

// Chat answers a question about a district from its latest stored knowledge.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abortError(c, common.NewAppError("BAD_CHAT_REQUEST", "district and question are required", common.ErrInvalidInput))
		return
	}
	district, err := h.districts.GetByName(c.Request.Context(), req.District)
	if err != nil {
		h.abortError(c, err)
		return
	}
	rows, err := h.extractions.ListLatest(c.Request.Context(), district.ID, "", "")
	if err != nil {
		h.abortError(c, err)
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"district": district.Name,
			"answer":   "No extracted data is available for this district yet.",
		})
		return
	}

	prompt := llm.BuildChatPrompt(req.Question, extract.FormatChatContext(rows), district.Name)
	opts := llm.DefaultOptions()
	opts.Temperature = h.chatTemp
	answer, err := h.completer.Complete(c.Request.Context(), prompt, opts)
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"district": district.Name, "answer": answer})
}

// latestRows resolves the district path param and its latest rows, honoring
// sector and sub_category query filters.
func (h *Handler) latestRows(c *gin.Context) (*entity.District, []*entity.Extraction, bool) {
	district, err := h.districts.GetByName(c.Request.Context(), c.Param("district"))
	if err != nil {
		h.abortError(c, err)
		return nil, nil, false
	}
	rows, err := h.extractions.ListLatest(c.Request.Context(), district.ID,
		c.Query("sector"), c.Query("sub_category"))
	if err != nil {
		h.abortError(c, err)
		return nil, nil, false
	}
	return district, rows, true
}
