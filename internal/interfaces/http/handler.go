package httpinterface

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tdex-network/nftswap-daemon/internal/core/application"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

type handler struct {
	swapSvc      application.SwapService
	feeSvc       application.FeeService
	webhookSvc   application.WebhookService
	adminAccount string
	precision    uint
}

func (h *handler) getFee(c *gin.Context) {
	info, err := h.feeSvc.GetFeeInfo(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFeeResponse(info, h.precision))
}

func (h *handler) setFeeRate(c *gin.Context) {
	var req setFeeRateRequest
	if !bindRequest(c, &req) {
		return
	}
	rate, err := req.rate(h.precision)
	if err != nil {
		abortWithInvalidArgument(c, fmt.Errorf("invalid fee amount: %w", err))
		return
	}

	ctx := c.Request.Context()
	if err := h.feeSvc.SetFeeRate(ctx, h.adminAccount, rate); err != nil {
		abortWithError(c, err)
		return
	}
	h.getFee(c)
}

func (h *handler) setFeeCollector(c *gin.Context) {
	var req setFeeCollectorRequest
	if !bindRequest(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := h.feeSvc.SetFeeCollector(
		ctx, h.adminAccount, req.FeeCollector,
	); err != nil {
		abortWithError(c, err)
		return
	}
	h.getFee(c)
}

func (h *handler) proposeSwap(c *gin.Context) {
	var req proposeSwapRequest
	if !bindRequest(c, &req) {
		return
	}

	swap, err := h.swapSvc.ProposeSwap(
		c.Request.Context(), application.ProposeSwapRequest{
			Proposer:       req.Proposer,
			Counterparty:   req.Counterparty,
			OfferedAsset:   req.OfferedAsset.toDomain(),
			RequestedAsset: req.RequestedAsset.toDomain(),
			TTL:            time.Duration(req.TTLSeconds) * time.Second,
		},
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSwapResponse(*swap, h.precision))
}

func (h *handler) listSwaps(c *gin.Context) {
	filter := domain.SwapFilter{Party: c.Query("party")}
	if status := c.Query("status"); len(status) > 0 {
		s, err := domain.ParseSwapStatus(status)
		if err != nil {
			abortWithInvalidArgument(c, err)
			return
		}
		filter.Status = s
	}

	var page *domain.Page
	pageNumber, pageSize := c.Query("page"), c.Query("page_size")
	if len(pageNumber) > 0 || len(pageSize) > 0 {
		number, err := parseOptionalInt(pageNumber)
		if err != nil {
			abortWithInvalidArgument(c, fmt.Errorf("invalid page: %w", err))
			return
		}
		size, err := parseOptionalInt(pageSize)
		if err != nil {
			abortWithInvalidArgument(c, fmt.Errorf("invalid page size: %w", err))
			return
		}
		p := domain.NewPage(number, size)
		page = &p
	}

	swaps, err := h.swapSvc.ListSwaps(c.Request.Context(), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}

	res := listSwapsResponse{Swaps: make([]swapResponse, 0, len(swaps))}
	for _, s := range swaps {
		res.Swaps = append(res.Swaps, newSwapResponse(s, h.precision))
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) getSwap(c *gin.Context) {
	swapID, ok := parseSwapID(c)
	if !ok {
		return
	}

	swap, err := h.swapSvc.GetSwap(c.Request.Context(), swapID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSwapResponse(*swap, h.precision))
}

func (h *handler) getSwapHistory(c *gin.Context) {
	swapID, ok := parseSwapID(c)
	if !ok {
		return
	}

	events, err := h.swapSvc.GetSwapHistory(c.Request.Context(), swapID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSwapHistoryResponse(swapID, events))
}

func (h *handler) acceptSwap(c *gin.Context) {
	h.transition(c, h.swapSvc.AcceptSwap)
}

func (h *handler) settleSwap(c *gin.Context) {
	h.transition(c, h.swapSvc.SettleSwap)
}

func (h *handler) cancelSwap(c *gin.Context) {
	h.transition(c, h.swapSvc.CancelSwap)
}

func (h *handler) listCustody(c *gin.Context) {
	entries, err := h.swapSvc.ListCustodyEntries(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListCustodyResponse(entries))
}

func (h *handler) sweepExpired(c *gin.Context) {
	res, err := h.swapSvc.SweepExpired(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sweepResponse{
		ExpiredSwapIDs:  res.ExpiredSwapIDs,
		ReleasedEntries: res.ReleasedEntries,
	})
}

func (h *handler) addWebhook(c *gin.Context) {
	var req addWebhookRequest
	if !bindRequest(c, &req) {
		return
	}

	id, err := h.webhookSvc.AddWebhook(c.Request.Context(), application.Webhook{
		Event:    req.Event,
		Endpoint: req.Endpoint,
		Secret:   req.Secret,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addWebhookResponse{ID: id})
}

func (h *handler) removeWebhook(c *gin.Context) {
	if err := h.webhookSvc.RemoveWebhook(
		c.Request.Context(), c.Param("id"),
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listWebhooks(c *gin.Context) {
	hooks, err := h.webhookSvc.ListWebhooks(
		c.Request.Context(), c.Query("event"),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListWebhooksResponse(hooks))
}

func (h *handler) transition(
	c *gin.Context,
	apply func(context.Context, uint64, string) (*domain.Swap, error),
) {
	swapID, ok := parseSwapID(c)
	if !ok {
		return
	}
	var req callerRequest
	if !bindRequest(c, &req) {
		return
	}

	swap, err := apply(c.Request.Context(), swapID, req.Caller)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSwapResponse(*swap, h.precision))
}

type validatable interface {
	Validate() error
}

// bindRequest decodes and validates the JSON body into req, aborting the
// request on failure.
func bindRequest(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithInvalidArgument(c, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := req.Validate(); err != nil {
		abortWithInvalidArgument(c, err)
		return false
	}
	return true
}

func parseSwapID(c *gin.Context) (uint64, bool) {
	swapID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || swapID == 0 {
		abortWithInvalidArgument(c, fmt.Errorf("invalid swap id %q", c.Param("id")))
		return 0, false
	}
	return swapID, true
}

func parseOptionalInt(s string) (int, error) {
	if len(s) <= 0 {
		return 0, nil
	}
	return strconv.Atoi(s)
}
