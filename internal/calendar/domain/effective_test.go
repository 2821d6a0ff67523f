package domain

import (
	"testing"

	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
)

func TestEffectiveStatePrecedence(t *testing.T) {
	sub := &subscriptiondomain.Subscription{
		DailyQuantityML: 1000,
		LargeBottles:    1,
		SmallBottles:    0,
	}
	mod := &DeliveryModification{
		QuantityML:   1500,
		LargeBottles: 1,
		SmallBottles: 1,
	}
	pause := &Pause{}

	if eff := EffectiveState(sub, mod, pause); !eff.Paused {
		t.Fatal("pause must win over modification")
	}
	if eff := EffectiveState(sub, nil, pause); !eff.Paused {
		t.Fatal("pause must win over subscription")
	}

	eff := EffectiveState(sub, mod, nil)
	if eff.Paused || eff.QuantityML != 1500 || eff.LargeBottles != 1 || eff.SmallBottles != 1 {
		t.Fatalf("modification not applied: %+v", eff)
	}

	eff = EffectiveState(sub, nil, nil)
	if eff.Paused || eff.QuantityML != 1000 || eff.LargeBottles != 1 || eff.SmallBottles != 0 {
		t.Fatalf("subscription defaults not applied: %+v", eff)
	}
}
