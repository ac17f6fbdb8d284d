package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/interface/http/dto"
	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

type SubscriptionHandler struct {
	current *subscription.GetCurrentUseCase
	upgrade *subscription.UpgradeUseCase
	cancel  *subscription.CancelUseCase
	usage   *subscription.GetUsageUseCase
}

func NewSubscriptionHandler(deps subscription.Deps) *SubscriptionHandler {
	return &SubscriptionHandler{
		current: subscription.NewGetCurrentUseCase(deps),
		upgrade: subscription.NewUpgradeUseCase(deps),
		cancel:  subscription.NewCancelUseCase(deps),
		usage:   subscription.NewGetUsageUseCase(deps),
	}
}

// Entitlements отдаёт таблицу возможностей всех тарифов.
func (h *SubscriptionHandler) Entitlements(c *gin.Context) {
	plans := []entitlement.Plan{entitlement.PlanNone, entitlement.PlanBasic, entitlement.PlanPro, entitlement.PlanPremium}
	out := make([]entitlement.Entitlements, 0, len(plans))
	for _, p := range plans {
		out = append(out, entitlement.For(p))
	}
	response.Success(c, out)
}

func (h *SubscriptionHandler) Current(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	view, err := h.current.Execute(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToCurrentSubscriptionResponse(view))
}

func (h *SubscriptionHandler) Upgrade(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.UpgradeRequest
	if !bind(c, &req) {
		return
	}

	sub, err := h.upgrade.Execute(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.ToSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	floor, err := h.cancel.Execute(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToSubscriptionResponse(floor))
}

// Usage обрабатывает GET /quota.
func (h *SubscriptionHandler) Usage(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	snap, err := h.usage.Execute(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, snap)
}
