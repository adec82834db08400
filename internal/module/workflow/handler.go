package workflow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/middleware"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/response"
	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the fulfillment workflow.
type Handler struct {
	service *Service

	// bulkMiddleware guards the bulk endpoint, typically the idempotency
	// replay layer. Nil entries are skipped.
	bulkMiddleware []gin.HandlerFunc
}

// NewHandler creates a new workflow handler.
func NewHandler(service *Service, bulkMiddleware ...gin.HandlerFunc) *Handler {
	filtered := make([]gin.HandlerFunc, 0, len(bulkMiddleware))
	for _, m := range bulkMiddleware {
		if m != nil {
			filtered = append(filtered, m)
		}
	}
	return &Handler{service: service, bulkMiddleware: filtered}
}

// RegisterProtectedRoutes registers workflow routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	items := r.Group("/items")
	{
		items.POST("/:id/transitions", h.Transition)
		items.GET("/:id/transitions", h.AllowedTransitions)
		items.GET("/:id/history", h.History)
		items.POST("/transitions/common", h.CommonTransitions)

		bulk := append([]gin.HandlerFunc{}, h.bulkMiddleware...)
		bulk = append(bulk, h.BulkTransition)
		items.POST("/bulk-transitions", bulk...)
	}

	orders := r.Group("/orders")
	{
		orders.GET("/:id/status", h.OrderStatus)
	}

	r.GET("/statuses", h.Statuses)
	r.GET("/statuses/visibility", h.Visibility)
}

// Transition moves one item to a new status.
//
//	@Summary		Transition an item
//	@Description	Move one order item to a new fulfillment status
//	@Tags			Workflow
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int					true	"Item ID"
//	@Param			request	body		TransitionRequest	true	"Transition request"
//	@Success		200		{object}	TransitionResult
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Failure		422		{object}	map[string]string
//	@Router			/items/{id}/transitions [post]
func (h *Handler) Transition(c *gin.Context) {
	act, ok := middleware.GetActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.service.Apply(c.Request.Context(), act, itemID, req)
	if err != nil {
		handleWorkflowError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkTransition moves a set of items to one target status.
//
//	@Summary		Bulk transition items
//	@Description	Move up to 200 order items to one fulfillment status with per-item skip reporting
//	@Tags			Workflow
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string					false	"Idempotency key"
//	@Param			request			body		BulkTransitionRequest	true	"Bulk transition request"
//	@Success		200				{object}	BulkResult
//	@Failure		400				{object}	map[string]string
//	@Failure		403				{object}	map[string]string
//	@Failure		422				{object}	map[string]interface{}
//	@Router			/items/bulk-transitions [post]
func (h *Handler) BulkTransition(c *gin.Context) {
	act, ok := middleware.GetActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.service.ApplyBulk(c.Request.Context(), act, req)
	if err != nil {
		handleWorkflowError(c, err, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AllowedTransitions returns the legal next moves for an item.
//
//	@Summary		List allowed transitions
//	@Description	List the statuses the caller's role may move this item to
//	@Tags			Workflow
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Item ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		404	{object}	map[string]string
//	@Router			/items/{id}/transitions [get]
func (h *Handler) AllowedTransitions(c *gin.Context) {
	act, ok := middleware.GetActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	transitions, err := h.service.AllowedTransitions(c.Request.Context(), act, itemID)
	if err != nil {
		handleWorkflowError(c, err, nil)
		return
	}
	if transitions == nil {
		transitions = []AllowedTransition{}
	}

	c.JSON(http.StatusOK, gin.H{"transitions": transitions})
}

// CommonTransitions returns the transitions valid for every item of a selection.
//
//	@Summary		List common transitions
//	@Description	Intersect the allowed transitions of a heterogeneous item selection
//	@Tags			Workflow
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CommonTransitionsRequest	true	"Item selection"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]string
//	@Router			/items/transitions/common [post]
func (h *Handler) CommonTransitions(c *gin.Context) {
	act, ok := middleware.GetActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CommonTransitionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	transitions, err := h.service.CommonTransitions(c.Request.Context(), act, req.ItemIDs)
	if err != nil {
		handleWorkflowError(c, err, nil)
		return
	}
	if transitions == nil {
		transitions = []AllowedTransition{}
	}

	c.JSON(http.StatusOK, gin.H{"transitions": transitions})
}

// History returns an item's audit trail, newest first.
//
//	@Summary		Item status history
//	@Description	List every status change recorded for an item
//	@Tags			Workflow
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Item ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		404	{object}	map[string]string
//	@Router			/items/{id}/history [get]
func (h *Handler) History(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.ItemHistory(c.Request.Context(), itemID)
	if err != nil {
		handleWorkflowError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// OrderStatus returns an order's derived status.
//
//	@Summary		Order derived status
//	@Description	Return the order-level status derived from its items
//	@Tags			Workflow
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Order ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		404	{object}	map[string]string
//	@Router			/orders/{id}/status [get]
func (h *Handler) OrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := h.service.OrderStatus(c.Request.Context(), orderID)
	if err != nil {
		handleWorkflowError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": status})
}

// Statuses returns the status catalog.
//
//	@Summary		List statuses
//	@Description	List the fulfillment status catalog
//	@Tags			Workflow
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Router			/statuses [get]
func (h *Handler) Statuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": h.service.Statuses()})
}

// Visibility returns the statuses the caller's role may enumerate.
//
//	@Summary		Role status visibility
//	@Description	List the statuses visible to the caller's role; empty scope means unrestricted
//	@Tags			Workflow
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Router			/statuses/visibility [get]
func (h *Handler) Visibility(c *gin.Context) {
	act, ok := middleware.GetActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	keys := h.service.VisibleStatusKeys(Role(act.Role))
	c.JSON(http.StatusOK, gin.H{
		"role":         act.Role,
		"unrestricted": keys == nil,
		"statuses":     keys,
	})
}

func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return id, true
}

func handleWorkflowError(c *gin.Context, err error, bulk *BulkResult) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		response.Error(c, http.StatusNotFound, "item_not_found")
	case errors.Is(err, ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, "order_not_found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrBatchTooLarge):
		response.Error(c, http.StatusBadRequest, "batch_too_large")
	case errors.Is(err, ErrNoValidItems):
		response.Error(c, http.StatusBadRequest, "no_valid_items")
	case errors.Is(err, ErrUnknownStatus):
		response.Error(c, http.StatusUnprocessableEntity, "unknown_status")
	case errors.Is(err, ErrMissingTracking):
		response.Error(c, http.StatusUnprocessableEntity, "tracking_number_required")
	case errors.Is(err, ErrInvalidTransition):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, ErrConcurrentModification):
		response.Error(c, http.StatusConflict, "concurrent_modification")
	case errors.Is(err, ErrNoItemsTransitionable):
		if bulk != nil {
			response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "no_items_transitionable", bulk.Skipped)
		} else {
			response.Error(c, http.StatusUnprocessableEntity, "no_items_transitionable")
		}
	default:
		response.Error(c, http.StatusInternalServerError, "internal_error")
	}
}
