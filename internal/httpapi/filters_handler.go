package httpapi

import (
	"errors"
	"net/http"
	"time"

	"aquaflow/internal/repository"
	"aquaflow/internal/watercalc"

	"go.uber.org/zap"
)

// FiltersHandler filter health endpoints
type FiltersHandler struct {
	filters repository.FilterRepo
	logger  *zap.Logger
	now     func() time.Time
}

func NewFiltersHandler(filters repository.FilterRepo, logger *zap.Logger) *FiltersHandler {
	return &FiltersHandler{
		filters: filters,
		logger:  logger,
		now:     time.Now,
	}
}

type filterHealthResponse struct {
	UID    string  `json:"uid"`
	Health float64 `json:"health"`
}

// Health handles GET /api/v1/filters/{uid}/health. Missing samples or a
// missing expiry record report full health rather than an error.
func (h *FiltersHandler) Health(w http.ResponseWriter, r *http.Request, uid string) {
	input := watercalc.FilterHealthInput{Now: h.now().UTC()}

	reading, err := h.filters.LatestReading(r.Context(), uid)
	switch {
	case err == nil:
		input.PH = reading.PH
		input.Turbidity = reading.Turbidity
		input.HasSample = true
	case errors.Is(err, repository.ErrNotFound):
		// no sample yet, health stays at 100
	default:
		h.logger.Error("Failed to load filter reading",
			zap.String("uid", uid),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load filter reading"))
		return
	}

	expiry, err := h.filters.GetExpiry(r.Context(), uid)
	switch {
	case err == nil:
		input.Expiry = expiry.ExpirationDate
	case errors.Is(err, repository.ErrNotFound):
		// no expiry record, health stays at 100
	default:
		h.logger.Error("Failed to load filter expiry",
			zap.String("uid", uid),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load filter expiry"))
		return
	}

	health := watercalc.FilterHealth(input)
	writeJSON(w, http.StatusOK, Ok(filterHealthResponse{UID: uid, Health: health}))
}

type filterResetResponse struct {
	UID            string    `json:"uid"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// Reset handles POST /api/v1/filters/{uid}/reset: a replaced filter starts
// a fresh baseline period from today.
func (h *FiltersHandler) Reset(w http.ResponseWriter, r *http.Request, uid string) {
	expiration := h.now().UTC().AddDate(0, 0, int(watercalc.BaselineDays))
	if err := h.filters.ResetExpiry(r.Context(), uid, expiration); err != nil {
		h.logger.Error("Failed to reset filter expiry",
			zap.String("uid", uid),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to reset filter"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(filterResetResponse{UID: uid, ExpirationDate: expiration}))
}
