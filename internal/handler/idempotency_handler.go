package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/oncepay/oncepay/internal/handler/dto"
	infraerrors "github.com/oncepay/oncepay/internal/pkg/errors"
	"github.com/oncepay/oncepay/internal/pkg/response"
	"github.com/oncepay/oncepay/internal/service"
)

// IdempotencyKeyHandler exposes key issuance, record lookup, and the
// lifecycle metrics snapshot.
type IdempotencyKeyHandler struct {
	keyService *service.IdempotencyService
}

func NewIdempotencyKeyHandler(keyService *service.IdempotencyService) *IdempotencyKeyHandler {
	return &IdempotencyKeyHandler{keyService: keyService}
}

// Issue handles POST /api/v1/idempotency-keys. The body is optional; an
// empty request issues an anonymous, untagged key. The key is durably
// reserved before the response is written.
func (h *IdempotencyKeyHandler) Issue(c *gin.Context) {
	var req dto.IssueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorFrom(c, infraerrors.BadRequest("INVALID_REQUEST", "invalid request body"))
		return
	}

	record, err := h.keyService.Issue(c.Request.Context(), optionalString(req.Owner), optionalString(req.Operation))
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	response.Created(c, dto.IssuedKey{Key: record.Key, ReservedUntil: record.ReservedUntil})
}

// Get handles GET /api/v1/idempotency-keys/:key. Absent and malformed keys
// both read as "not found" so the route does not oracle key validity.
func (h *IdempotencyKeyHandler) Get(c *gin.Context) {
	key, err := service.NormalizeKey(c.Param("key"))
	if err != nil || key == "" {
		response.ErrorFrom(c, infraerrors.NotFound("IDEMPOTENCY_KEY_NOT_FOUND", "idempotency key not found"))
		return
	}

	record, err := h.keyService.Get(c.Request.Context(), key)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if record == nil {
		response.ErrorFrom(c, infraerrors.NotFound("IDEMPOTENCY_KEY_NOT_FOUND", "idempotency key not found"))
		return
	}
	response.Success(c, dto.KeyViewFromDomain(record))
}

// Metrics handles GET /api/v1/idempotency/metrics.
func (h *IdempotencyKeyHandler) Metrics(c *gin.Context) {
	response.Success(c, service.GetLifecycleMetricsSnapshot())
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
