package diet

// FallbackPlanName is shown when the generator omits planName.
const FallbackPlanName = "Your Diet Plan"

// Macros are the energy and macronutrient totals of a food, a meal or a day.
type Macros struct {
	Calories Number `json:"calories"`
	Protein  Number `json:"protein"`
	Carbs    Number `json:"carbs"`
	Fat      Number `json:"fat"`
}

// Add returns the element-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// FoodItem is a single entry inside a meal.
type FoodItem struct {
	Item     Text   `json:"item"`
	Portion  Text   `json:"portion"`
	Calories Number `json:"calories"`
	Protein  Number `json:"protein"`
	Carbs    Number `json:"carbs"`
	Fat      Number `json:"fat"`
}

// Meal is one eating occasion of the day. Order inside Plan.Meals is the
// display and chart order.
type Meal struct {
	Name       Text       `json:"name"`
	Time       Text       `json:"time"`
	Foods      []FoodItem `json:"foods"`
	MealTotals Macros     `json:"mealTotals"`
}

// Plan is the diet plan as returned by the generator. Nothing is validated
// after decoding; absent fields keep their zero value and are defaulted at
// display time.
type Plan struct {
	PlanName     Text   `json:"planName"`
	Overview     Text   `json:"overview"`
	DailyTotals  Macros `json:"dailyTotals"`
	Meals        []Meal `json:"meals"`
	Tips         []Text `json:"tips,omitempty"`
	ShoppingList []Text `json:"shoppingList,omitempty"`
}

// DisplayName returns the plan name or the fallback label.
func (p *Plan) DisplayName() string {
	if p.PlanName == "" {
		return FallbackPlanName
	}
	return string(p.PlanName)
}

// MealTotalsSum adds up the totals of every meal. Daily totals are expected
// to match this value but are displayed as received.
func (p *Plan) MealTotalsSum() Macros {
	var sum Macros
	for _, m := range p.Meals {
		sum = sum.Add(m.MealTotals)
	}
	return sum
}

// HasMeals reports whether the plan contains at least one meal.
func (p *Plan) HasMeals() bool {
	return p != nil && len(p.Meals) > 0
}
