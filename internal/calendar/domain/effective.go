package domain

import (
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
)

// EffectiveDelivery is the resolved calendar state for one
// (customer, date) pair.
type EffectiveDelivery struct {
	Paused       bool `json:"paused"`
	QuantityML   int  `json:"quantity_ml"`
	LargeBottles int  `json:"large_bottles"`
	SmallBottles int  `json:"small_bottles"`
}

// EffectiveState resolves the calendar overlays against the subscription
// defaults. Precedence is fixed: a pause wins over a modification, a
// modification wins over the subscription.
func EffectiveState(sub *subscriptiondomain.Subscription, mod *DeliveryModification, pause *Pause) EffectiveDelivery {
	if pause != nil {
		return EffectiveDelivery{Paused: true}
	}
	if mod != nil {
		return EffectiveDelivery{
			QuantityML:   mod.QuantityML,
			LargeBottles: mod.LargeBottles,
			SmallBottles: mod.SmallBottles,
		}
	}
	return EffectiveDelivery{
		QuantityML:   sub.DailyQuantityML,
		LargeBottles: sub.LargeBottles,
		SmallBottles: sub.SmallBottles,
	}
}
