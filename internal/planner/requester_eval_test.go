package planner

import (
	"context"
	"testing"

	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/llm"
)

// TestRequestPlan_LiveEval performs a real Gemini call to check how well the
// model follows the prompt rules.
// Run with: GEMINI_API_KEY=... go test -v ./internal/planner -run TestRequestPlan_LiveEval
func TestRequestPlan_LiveEval(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping live eval in short mode")
	}

	cfg, err := config.NewFromEnv()
	if err != nil || cfg.GeminiAPIKey == "" {
		t.Skip("Skipping: GEMINI_API_KEY not set")
	}

	profile := testProfile()
	profile.MealsPerDay = 4
	profile.Allergies = "peanuts"

	res, err := NewRequester(llm.NewRESTClient(cfg)).RequestPlan(context.Background(), profile, cfg.GeminiAPIKey)
	if err != nil {
		t.Fatalf("Requester failed to respond: %v", err)
	}
	plan := res.Plan

	// EVAL A: requested meal count
	if len(plan.Meals) != profile.MealsPerDay {
		t.Errorf("RULE FAIL: expected %d meals, got %d", profile.MealsPerDay, len(plan.Meals))
	}

	// EVAL B: daily totals roughly match the meal totals (advisory only)
	sum := plan.MealTotalsSum()
	diff := plan.DailyTotals.Calories.Float() - sum.Calories.Float()
	if diff < 0 {
		diff = -diff
	}
	if plan.DailyTotals.Calories > 0 && diff/plan.DailyTotals.Calories.Float() > 0.1 {
		t.Logf("CONSISTENCY WARN: daily %v kcal vs meals %v kcal", plan.DailyTotals.Calories, sum.Calories)
	}

	// EVAL C: every meal has food items
	for _, m := range plan.Meals {
		if len(m.Foods) < 2 {
			t.Errorf("RULE FAIL: meal '%s' has %d food items", m.Name, len(m.Foods))
		}
	}

	t.Logf("Eval complete. '%s' with %d meals, %d tokens.", plan.DisplayName(), len(plan.Meals), res.Meta.Usage.TotalTokens)
}
