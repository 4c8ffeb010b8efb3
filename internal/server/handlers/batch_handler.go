package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/service/ledger"
	"github.com/mamadbah2/agritrace/pkg/qrcode"
)

// FarmerHeader carries the caller's farmer identity.
const FarmerHeader = "X-Farmer-ID"

// Ledger is the lifecycle engine surface exposed over HTTP.
type Ledger interface {
	CreateBatch(ctx context.Context, farmerID string, form models.BatchForm) (models.Batch, error)
	GetBatchByID(ctx context.Context, batchID string) (models.Batch, bool, error)
	GetFarmerBatches(ctx context.Context, farmerID string) ([]models.Batch, error)
	AppendEvent(ctx context.Context, batchID string, input models.EventInput) (models.Batch, bool, error)
	Advance(ctx context.Context, batchID, actor, details string) (models.Batch, bool, error)
	TraceURL(batchID string) string
}

// Reports serves dashboard counters and digests.
type Reports interface {
	FarmerStats(ctx context.Context, farmerID string) (models.FarmerStats, error)
	DailyDigest(ctx context.Context, now time.Time) (models.DailyDigest, error)
}

// BatchHandler adapts the ledger and reporting services to gin.
type BatchHandler struct {
	ledger          Ledger
	reports         Reports
	defaultFarmerID string
	qrSize          int
	logger          *zap.Logger
}

// NewBatchHandler constructs the HTTP handler adapter.
func NewBatchHandler(l Ledger, reports Reports, defaultFarmerID string, qrSize int, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{
		ledger:          l,
		reports:         reports,
		defaultFarmerID: defaultFarmerID,
		qrSize:          qrSize,
		logger:          logger,
	}
}

type advanceRequest struct {
	Actor   string `json:"actor"`
	Details string `json:"details"`
}

type nextStatusResponse struct {
	BatchID    string             `json:"batchID"`
	Status     models.Status      `json:"status"`
	NextStatus models.Status      `json:"nextStatus,omitempty"`
	CanUpdate  bool               `json:"canUpdate"`
	Transition *models.Transition `json:"transition,omitempty"`
}

// CreateBatch registers a new batch for the calling farmer.
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var form models.BatchForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.logger.Warn("invalid batch payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.ledger.CreateBatch(c.Request.Context(), h.farmerID(c), form)
	if err != nil {
		h.writeError(c, "create batch", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"batch":    batch,
		"traceUrl": h.ledger.TraceURL(batch.BatchID),
	})
}

// ListBatches returns the calling farmer's batches, newest first.
func (h *BatchHandler) ListBatches(c *gin.Context) {
	batches, err := h.ledger.GetFarmerBatches(c.Request.Context(), h.farmerID(c))
	if err != nil {
		h.writeError(c, "list batches", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// Stats returns the calling farmer's dashboard counters.
func (h *BatchHandler) Stats(c *gin.Context) {
	stats, err := h.reports.FarmerStats(c.Request.Context(), h.farmerID(c))
	if err != nil {
		h.writeError(c, "farmer stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetBatch returns one batch with its full history.
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, batch)
}

// NextStatus reports where the batch can move next.
func (h *BatchHandler) NextStatus(c *gin.Context) {
	batch, ok := h.lookup(c)
	if !ok {
		return
	}

	resp := nextStatusResponse{
		BatchID:   batch.BatchID,
		Status:    batch.Status,
		CanUpdate: models.CanUpdate(batch),
	}
	if transition, ok := models.TransitionFrom(batch.Status); ok {
		resp.NextStatus = transition.To
		resp.Transition = &transition
	}
	c.JSON(http.StatusOK, resp)
}

// AppendEvent records a supply-chain event against the batch.
func (h *BatchHandler) AppendEvent(c *gin.Context) {
	var input models.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("invalid event payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if input.TargetStatus != "" {
		status, ok := models.ParseStatus(string(input.TargetStatus))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown target status", "targetStatus": input.TargetStatus})
			return
		}
		input.TargetStatus = status
	}

	batch, found, err := h.ledger.AppendEvent(c.Request.Context(), c.Param("id"), input)
	h.writeMutation(c, "append event", batch, found, err)
}

// Advance moves the batch one stage forward using the default transition.
func (h *BatchHandler) Advance(c *gin.Context) {
	var req advanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid advance payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	batch, found, err := h.ledger.Advance(c.Request.Context(), c.Param("id"), req.Actor, req.Details)
	h.writeMutation(c, "advance batch", batch, found, err)
}

// QRCode renders the batch trace link as a PNG.
func (h *BatchHandler) QRCode(c *gin.Context) {
	batch, ok := h.lookup(c)
	if !ok {
		return
	}

	png, err := qrcode.PNG(h.ledger.TraceURL(batch.BatchID), h.qrSize)
	if err != nil {
		h.writeError(c, "render qr code", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Trace is the public consumer view of a batch's journey.
func (h *BatchHandler) Trace(c *gin.Context) {
	batch, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batch":     batch,
		"traceUrl":  h.ledger.TraceURL(batch.BatchID),
		"canUpdate": models.CanUpdate(batch),
	})
}

// Digest returns the ledger digest for the last 24 hours.
func (h *BatchHandler) Digest(c *gin.Context) {
	digest, err := h.reports.DailyDigest(c.Request.Context(), time.Now())
	if err != nil {
		h.writeError(c, "daily digest", err)
		return
	}
	c.JSON(http.StatusOK, digest)
}

func (h *BatchHandler) farmerID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(FarmerHeader)); id != "" {
		return id
	}
	return h.defaultFarmerID
}

func (h *BatchHandler) lookup(c *gin.Context) (models.Batch, bool) {
	batchID := c.Param("id")
	batch, ok, err := h.ledger.GetBatchByID(c.Request.Context(), batchID)
	if err != nil {
		h.writeError(c, "get batch", err)
		return models.Batch{}, false
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found", "batchID": batchID})
		return models.Batch{}, false
	}
	return batch, true
}

func (h *BatchHandler) writeMutation(c *gin.Context, op string, batch models.Batch, found bool, err error) {
	if !found && err == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found", "batchID": c.Param("id")})
		return
	}
	if err != nil {
		h.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch})
}

func (h *BatchHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrIllegalTransition), errors.Is(err, ledger.ErrTerminalStatus):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
