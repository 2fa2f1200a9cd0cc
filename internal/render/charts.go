package render

import (
	"math"
	"strconv"
	"strings"

	"ai-diet-planner/internal/diet"
)

// Theme is the color mode of the page. It only affects chart styling.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	DefaultTheme = ThemeDark
)

// ParseTheme returns the theme named by s, or the default theme.
func ParseTheme(s string) Theme {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight
	case ThemeDark:
		return ThemeDark
	default:
		return DefaultTheme
	}
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Energy per gram of macronutrient.
const (
	KcalPerGramProtein = 4
	KcalPerGramCarbs   = 4
	KcalPerGramFat     = 9
)

// Palette is the theme-dependent part of chart styling.
type Palette struct {
	TextColor string `json:"textColor"`
	GridColor string `json:"gridColor"`
}

// ChartColors derives the palette for theme.
func ChartColors(theme Theme) Palette {
	if theme == ThemeLight {
		return Palette{TextColor: "#1a1d27", GridColor: "rgba(0,0,0,0.08)"}
	}
	return Palette{TextColor: "#e8e9ed", GridColor: "rgba(255,255,255,0.08)"}
}

var (
	macroLabels = []string{"Protein", "Carbs", "Fat"}
	macroColors = []string{"#3b82f6", "#eab308", "#ef4444"}
)

const (
	mealBarFill   = "rgba(245, 158, 11, 0.7)"
	mealBarBorder = "#f59e0b"
)

// MacroSplit is the energy contributed by each macronutrient.
type MacroSplit struct {
	Labels   []string
	Series   []float64
	Percents []int
}

// NewMacroSplit converts gram totals into the energy series of the
// proportion chart. Percentages are all zero when there is no energy.
func NewMacroSplit(totals diet.Macros) MacroSplit {
	series := []float64{
		totals.Protein.Float() * KcalPerGramProtein,
		totals.Carbs.Float() * KcalPerGramCarbs,
		totals.Fat.Float() * KcalPerGramFat,
	}

	var sum float64
	for _, v := range series {
		sum += v
	}

	percents := make([]int, len(series))
	if sum > 0 {
		for i, v := range series {
			percents[i] = int(math.Round(v / sum * 100))
		}
	}

	return MacroSplit{
		Labels:   append([]string(nil), macroLabels...),
		Series:   series,
		Percents: percents,
	}
}

// MealSeries is the per-meal energy series of the bar chart, in meal order.
type MealSeries struct {
	Labels []string
	Series []float64
}

// NewMealSeries takes each meal's total calories, defaulting to 0.
func NewMealSeries(meals []diet.Meal) MealSeries {
	s := MealSeries{
		Labels: make([]string, 0, len(meals)),
		Series: make([]float64, 0, len(meals)),
	}
	for _, m := range meals {
		s.Labels = append(s.Labels, string(m.Name))
		s.Series = append(s.Series, m.MealTotals.Calories.Float())
	}
	return s
}

// ChartStyle is everything about a chart that is not data.
type ChartStyle struct {
	Palette
	Colors      []string `json:"colors"`
	BorderColor string   `json:"borderColor,omitempty"`
}

// Chart is a drawable chart description.
type Chart struct {
	Kind     string     `json:"kind"`
	Labels   []string   `json:"labels"`
	Series   []float64  `json:"series"`
	Percents []int      `json:"percents,omitempty"`
	Style    ChartStyle `json:"style"`
}

// Legend returns the legend text of each slice, e.g. "Protein 30%".
func (c Chart) Legend() []string {
	out := make([]string, len(c.Labels))
	for i, l := range c.Labels {
		out[i] = l
		if i < len(c.Percents) {
			out[i] = l + " " + strconv.Itoa(c.Percents[i]) + "%"
		}
	}
	return out
}

// ChartSet holds the two charts of a plan.
type ChartSet struct {
	Theme Theme `json:"theme"`
	Macro Chart `json:"macro"`
	Meals Chart `json:"meals"`
}

// BuildCharts derives both charts for plan.
func BuildCharts(plan *diet.Plan, theme Theme) ChartSet {
	split := NewMacroSplit(plan.DailyTotals)
	meals := NewMealSeries(plan.Meals)

	set := ChartSet{
		Macro: Chart{Kind: "doughnut", Labels: split.Labels, Series: split.Series, Percents: split.Percents},
		Meals: Chart{Kind: "bar", Labels: meals.Labels, Series: meals.Series},
	}
	return set.Retheme(theme)
}

// Retheme replaces the styling of both charts. Series are shared with the
// receiver and never recomputed.
func (s ChartSet) Retheme(theme Theme) ChartSet {
	palette := ChartColors(theme)
	s.Theme = theme
	s.Macro.Style = ChartStyle{
		Palette: palette,
		Colors:  append([]string(nil), macroColors...),
	}
	s.Meals.Style = ChartStyle{
		Palette:     palette,
		Colors:      []string{mealBarFill},
		BorderColor: mealBarBorder,
	}
	return s
}
