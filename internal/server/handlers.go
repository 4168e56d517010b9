package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/hamza-farooq/solsniper/internal/ai"
	"github.com/hamza-farooq/solsniper/internal/denylist"
	"github.com/hamza-farooq/solsniper/internal/history"
	"github.com/hamza-farooq/solsniper/internal/jupiter"
	"github.com/hamza-farooq/solsniper/internal/sniper"
)

// Handlers contains all dependencies for the control API endpoints.
// Everything except Signals and Logger is optional; missing pieces turn
// their endpoints into 400s rather than panics.
type Handlers struct {
	Signals    *sniper.SignalWatcher // shared with the exit controller
	Tracker    *sniper.Tracker       // live position snapshots
	Deny       *denylist.Store       // Redis-backed deny list
	History    *history.Store        // ClickHouse trade history
	Classifier *ai.Classifier        // grades free-text reports, optional
	Jupiter    *jupiter.Client       // quote passthrough for debugging
	DevMode    bool
	Logger     *logrus.Logger
}

// err returns a standardized JSON error response. In dev mode it includes
// extra details for debugging.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Positions returns the current state of every tracked position.
func (h *Handlers) Positions(c echo.Context) error {
	if h.Tracker == nil {
		return c.JSON(http.StatusOK, map[string]any{"items": []any{}})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": h.Tracker.Snapshot()})
}

// SignalPush ingests a spam-signal report and feeds it to the signal
// watcher. When the caller supplies free text instead of a severity, the
// classifier grades it; without a classifier such reports default to low.
func (h *Handlers) SignalPush(c echo.Context) error {
	var req SignalRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	source := sniper.SignalSource(strings.TrimSpace(req.Source))
	switch source {
	case sniper.SignalSourceSocial, sniper.SignalSourceOnchain:
	case "":
		source = sniper.SignalSourceSocial
	default:
		return h.err(c, http.StatusBadRequest, "invalid source", map[string]any{"source": "must be social or onchain-origin"})
	}

	severity := sniper.Severity(strings.ToLower(strings.TrimSpace(req.Severity)))
	reason := strings.TrimSpace(req.Reason)

	switch severity {
	case sniper.SeverityLow, sniper.SeverityMedium, sniper.SeverityHigh:
	case "":
		if strings.TrimSpace(req.Text) == "" {
			return h.err(c, http.StatusBadRequest, "severity or text is required", nil)
		}
		if h.Classifier == nil {
			severity, reason = sniper.SeverityLow, "unclassified report"
			break
		}
		ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
		defer cancel()
		severity, reason = h.Classifier.Classify(ctx, req.Text)
	default:
		return h.err(c, http.StatusBadRequest, "invalid severity", map[string]any{"severity": "must be low, medium or high"})
	}
	if reason == "" {
		reason = "reported via api"
	}

	sig := sniper.SpamSignal{Source: source, Severity: severity, Reason: reason}
	h.Signals.Push(sig)

	h.Logger.WithFields(logrus.Fields{
		"mint":     req.Mint,
		"source":   string(source),
		"severity": string(severity),
	}).Info("signal ingested")

	return c.JSON(http.StatusOK, SignalResponse{
		Mint:     req.Mint,
		Source:   string(source),
		Severity: string(severity),
		Reason:   reason,
	})
}

// RecentTrades returns the most recent trades from the history store.
// Accepts a limit query parameter (default 100, range 1-200).
func (h *Handlers) RecentTrades(c echo.Context) error {
	if h.History == nil {
		return h.err(c, http.StatusBadRequest, "history is not configured", nil)
	}

	limit := 100
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.History.RecentTrades(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get trades", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// DenyUpsert adds an address to the deny list.
func (h *Handlers) DenyUpsert(c echo.Context) error {
	if h.Deny == nil {
		return h.err(c, http.StatusBadRequest, "denylist is not configured", nil)
	}
	var req DenyUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := denylist.ValidateAddress(req.Address); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": "not a valid solana address"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Deny.Add(ctx, req.Address, strings.TrimSpace(req.Reason))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to add entry", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// DenyGet retrieves a deny-list entry by address. Returns 404 when the
// address is not listed.
func (h *Handlers) DenyGet(c echo.Context) error {
	if h.Deny == nil {
		return h.err(c, http.StatusBadRequest, "denylist is not configured", nil)
	}
	addr := c.Param("address")
	if err := denylist.ValidateAddress(addr); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": "not a valid solana address"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Deny.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, denylist.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "address not listed", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get entry", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// DenyList returns every deny-list entry.
func (h *Handlers) DenyList(c echo.Context) error {
	if h.Deny == nil {
		return h.err(c, http.StatusBadRequest, "denylist is not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Deny.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list entries", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// DenyDelete removes an address from the deny list. Returns 204 on success.
func (h *Handlers) DenyDelete(c echo.Context) error {
	if h.Deny == nil {
		return h.err(c, http.StatusBadRequest, "denylist is not configured", nil)
	}
	addr := c.Param("address")
	if err := denylist.ValidateAddress(addr); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": "not a valid solana address"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Deny.Remove(ctx, addr); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete entry", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
