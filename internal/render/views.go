package render

import (
	"strings"

	"ai-diet-planner/internal/diet"
)

// View is one of the three ways the meals can be shown.
type View string

const (
	ViewDaily  View = "daily"
	ViewWeekly View = "weekly"
	ViewCards  View = "cards"

	DefaultView = ViewDaily
)

// Views in selector order.
var Views = []View{ViewDaily, ViewWeekly, ViewCards}

// ParseView returns the named view, or false when name is unknown.
func ParseView(name string) (View, bool) {
	v := View(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Views {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// Label is the selector button text.
func (v View) Label() string {
	switch v {
	case ViewWeekly:
		return "Weekly"
	case ViewCards:
		return "Cards"
	default:
		return "Daily"
	}
}

// EmptyMessage is shown in place of the meals when a plan has none.
const EmptyMessage = "No meals found."

// WeekDays are the columns of the weekly grid.
var WeekDays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// MacroText is a set of totals ready for display.
type MacroText struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
}

func newMacroText(m diet.Macros) MacroText {
	return MacroText{
		Calories: m.Calories.String(),
		Protein:  m.Protein.String(),
		Carbs:    m.Carbs.String(),
		Fat:      m.Fat.String(),
	}
}

type FoodRow struct {
	Item    string    `json:"item"`
	Portion string    `json:"portion"`
	Macros  MacroText `json:"macros"`
}

type MealBlock struct {
	Name   string    `json:"name"`
	Time   string    `json:"time"`
	Foods  []FoodRow `json:"foods"`
	Totals MacroText `json:"totals"`
}

func newMealBlock(m diet.Meal) MealBlock {
	b := MealBlock{
		Name:   string(m.Name),
		Time:   string(m.Time),
		Totals: newMacroText(m.MealTotals),
		Foods:  make([]FoodRow, 0, len(m.Foods)),
	}
	for _, f := range m.Foods {
		b.Foods = append(b.Foods, FoodRow{
			Item:    string(f.Item),
			Portion: string(f.Portion),
			Macros: newMacroText(diet.Macros{
				Calories: f.Calories,
				Protein:  f.Protein,
				Carbs:    f.Carbs,
				Fat:      f.Fat,
			}),
		})
	}
	return b
}

// MealList is the day list and the card grid.
type MealList struct {
	Empty bool        `json:"empty"`
	Meals []MealBlock `json:"meals"`
}

// DayList lists every meal with its food table, in plan order.
func DayList(meals []diet.Meal) MealList {
	return newMealList(meals)
}

// CardGrid shows each meal as a card.
func CardGrid(meals []diet.Meal) MealList {
	return newMealList(meals)
}

func newMealList(meals []diet.Meal) MealList {
	l := MealList{Empty: len(meals) == 0, Meals: make([]MealBlock, 0, len(meals))}
	for _, m := range meals {
		l.Meals = append(l.Meals, newMealBlock(m))
	}
	return l
}

type WeekMeal struct {
	Name     string `json:"name"`
	Time     string `json:"time"`
	Calories string `json:"calories"`
}

type WeekDay struct {
	Day    string     `json:"day"`
	Totals MacroText  `json:"totals"`
	Meals  []WeekMeal `json:"meals"`
}

type WeekGrid struct {
	Days []WeekDay `json:"days"`
}

// WeeklyGrid repeats the single-day plan for every day of the week. The grid
// always has seven days, with no meal rows when the plan has no meals.
func WeeklyGrid(plan *diet.Plan) WeekGrid {
	totals := newMacroText(plan.DailyTotals)
	meals := make([]WeekMeal, 0, len(plan.Meals))
	for _, m := range plan.Meals {
		meals = append(meals, WeekMeal{
			Name:     string(m.Name),
			Time:     string(m.Time),
			Calories: m.MealTotals.Calories.String(),
		})
	}

	g := WeekGrid{Days: make([]WeekDay, 0, len(WeekDays))}
	for _, day := range WeekDays {
		g.Days = append(g.Days, WeekDay{Day: day, Totals: totals, Meals: meals})
	}
	return g
}
