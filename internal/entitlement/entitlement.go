// Package entitlement описывает тарифы брендов и возможности, которые они открывают.
//
// Все проверки доступа в системе обязаны идти через For: таблица возможностей
// статична, поэтому результат одинаков для любого вызывающего кода.
package entitlement

import (
	"math"
	"strings"

	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// Plan - тариф бренда.
type Plan string

const (
	PlanNone    Plan = "none"
	PlanBasic   Plan = "basic"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

var planRank = map[Plan]int{
	PlanNone:    0,
	PlanBasic:   1,
	PlanPro:     2,
	PlanPremium: 3,
}

// ParsePlan нормализует значение тарифа. Неизвестный тариф приравнивается к none.
func ParsePlan(value string) Plan {
	p := Plan(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := planRank[p]; !ok {
		return PlanNone
	}
	return p
}

func (p Plan) IsValid() bool {
	_, ok := planRank[p]
	return ok
}

// IsPaid возвращает true для всех тарифов кроме none.
func (p Plan) IsPaid() bool {
	return p.IsValid() && p != PlanNone
}

// IsPlanAtLeast сравнивает тарифы в порядке none < basic < pro < premium.
func IsPlanAtLeast(plan, required Plan) bool {
	return planRank[ParsePlan(string(plan))] >= planRank[ParsePlan(string(required))]
}

// Limit - числовой лимит тарифа. Unlimited соответствует отсутствию ограничения.
type Limit int64

const Unlimited Limit = math.MaxInt64

func (l Limit) IsUnlimited() bool {
	return l == Unlimited
}

// Allows сообщает, укладывается ли used+1 в лимит.
func (l Limit) Allows(used int64) bool {
	return l.IsUnlimited() || used < int64(l)
}

const (
	gib = int64(1) << 30
)

type Entitlements struct {
	Plan                    Plan  `json:"plan"`
	CanContactCreators      bool  `json:"can_contact_creators"`
	CanBookCreators         bool  `json:"can_book_creators"`
	CanMessageAfterDelivery bool  `json:"can_message_after_delivery"`
	HasAdvancedFilters      bool  `json:"has_advanced_filters"`
	HasCRM                  bool  `json:"has_crm"`
	HasContentLibrary       bool  `json:"has_content_library"`
	CanRequestVerifiedBadge bool  `json:"can_request_verified_badge"`
	CanViewCreatorPricing   bool  `json:"can_view_creator_pricing"`
	CampaignLimit           Limit `json:"campaign_limit"`
	StorageLimitBytes       Limit `json:"storage_limit_bytes"`
	MassMessageLimit        Limit `json:"mass_message_limit"`
	MessageLimit            Limit `json:"message_limit"`
}

var table = map[Plan]Entitlements{
	PlanNone: {
		Plan: PlanNone,
	},
	PlanBasic: {
		Plan:                  PlanBasic,
		CanContactCreators:    true,
		CanBookCreators:       true,
		CanViewCreatorPricing: true,
		CampaignLimit:         1,
		StorageLimitBytes:     Limit(1 * gib),
		MassMessageLimit:      0,
		MessageLimit:          10,
	},
	PlanPro: {
		Plan:                    PlanPro,
		CanContactCreators:      true,
		CanBookCreators:         true,
		CanMessageAfterDelivery: true,
		HasAdvancedFilters:      true,
		HasCRM:                  true,
		HasContentLibrary:       true,
		CanViewCreatorPricing:   true,
		CampaignLimit:           5,
		StorageLimitBytes:       Limit(10 * gib),
		MassMessageLimit:        50,
		MessageLimit:            50,
	},
	PlanPremium: {
		Plan:                    PlanPremium,
		CanContactCreators:      true,
		CanBookCreators:         true,
		CanMessageAfterDelivery: true,
		HasAdvancedFilters:      true,
		HasCRM:                  true,
		HasContentLibrary:       true,
		CanRequestVerifiedBadge: true,
		CanViewCreatorPricing:   true,
		CampaignLimit:           Unlimited,
		StorageLimitBytes:       Limit(100 * gib),
		MassMessageLimit:        Unlimited,
		MessageLimit:            Unlimited,
	},
}

// For возвращает набор возможностей тарифа.
func For(plan Plan) Entitlements {
	return table[ParsePlan(string(plan))]
}

// MessageLimit - сколько новых креаторов бренд может написать за месяц.
func MessageLimit(plan Plan) Limit {
	return For(plan).MessageLimit
}

// Capability - булева возможность тарифа.
type Capability string

const (
	CapContactCreators      Capability = "canContactCreators"
	CapBookCreators         Capability = "canBookCreators"
	CapMessageAfterDelivery Capability = "canMessageAfterDelivery"
	CapAdvancedFilters      Capability = "hasAdvancedFilters"
	CapCRM                  Capability = "hasCRM"
	CapContentLibrary       Capability = "hasContentLibrary"
	CapVerifiedBadge        Capability = "canRequestVerifiedBadge"
	CapViewCreatorPricing   Capability = "canViewCreatorPricing"
)

func (e Entitlements) Has(c Capability) bool {
	switch c {
	case CapContactCreators:
		return e.CanContactCreators
	case CapBookCreators:
		return e.CanBookCreators
	case CapMessageAfterDelivery:
		return e.CanMessageAfterDelivery
	case CapAdvancedFilters:
		return e.HasAdvancedFilters
	case CapCRM:
		return e.HasCRM
	case CapContentLibrary:
		return e.HasContentLibrary
	case CapVerifiedBadge:
		return e.CanRequestVerifiedBadge
	case CapViewCreatorPricing:
		return e.CanViewCreatorPricing
	}
	return false
}

// Require возвращает EntitlementDenied, если тариф не включает возможность.
func Require(plan Plan, c Capability) error {
	if For(plan).Has(c) {
		return nil
	}
	return apperror.EntitlementDenied(string(c)).WithDetail("plan", string(ParsePlan(string(plan))))
}
