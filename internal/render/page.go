package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"ai-diet-planner/internal/diet"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"number": formatInput,
}).ParseFS(templateFS, "templates/*.html"))

// ToastLevel picks the color of a notification.
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
	ToastInfo    ToastLevel = "info"
)

// ToastDuration is how long a notification stays on screen, in milliseconds.
const ToastDuration = 3000

// Toast is a transient notification.
type Toast struct {
	Message string     `json:"message"`
	Level   ToastLevel `json:"level"`
}

// PageState is everything the page depends on.
type PageState struct {
	Profile      diet.UserProfile
	APIKey       string
	Theme        Theme
	View         View
	Plan         *diet.Plan
	Charts       ChartSet
	Busy         bool
	ChromeHidden bool
	Toasts       []Toast
}

// Option is a select option of the profile form.
type Option struct {
	Value string
	Label string
}

// FormOptions are the choices offered by the profile form.
type FormOptions struct {
	Genders     []Option
	Activity    []Option
	Goals       []Option
	Preferences []Option
	Skills      []Option
	MealsPerDay []Option
}

var formOptions = FormOptions{
	Genders: []Option{
		{string(diet.GenderMale), "Male"},
		{string(diet.GenderFemale), "Female"},
		{string(diet.GenderOther), "Other"},
	},
	Activity: []Option{
		{string(diet.ActivitySedentary), "Sedentary (little or no exercise)"},
		{string(diet.ActivityLight), "Light (1-3 days/week)"},
		{string(diet.ActivityModerate), "Moderate (3-5 days/week)"},
		{string(diet.ActivityActive), "Active (6-7 days/week)"},
		{string(diet.ActivityVeryActive), "Very active (physical job or twice a day)"},
	},
	Goals: []Option{
		{string(diet.GoalLoseWeight), "Lose weight"},
		{string(diet.GoalMaintain), "Maintain weight"},
		{string(diet.GoalGainMuscle), "Gain muscle"},
		{string(diet.GoalImproveHealth), "Improve overall health"},
	},
	Preferences: []Option{
		{string(diet.PreferenceNone), "No restriction"},
		{string(diet.PreferenceVegetarian), "Vegetarian"},
		{string(diet.PreferenceVegan), "Vegan"},
		{string(diet.PreferencePescatarian), "Pescatarian"},
		{string(diet.PreferenceKeto), "Keto"},
		{string(diet.PreferencePaleo), "Paleo"},
		{string(diet.PreferenceMediterranean), "Mediterranean"},
	},
	Skills: []Option{
		{string(diet.SkillBeginner), "Beginner"},
		{string(diet.SkillIntermediate), "Intermediate"},
		{string(diet.SkillAdvanced), "Advanced"},
	},
	MealsPerDay: []Option{
		{"2", "2 meals"}, {"3", "3 meals"}, {"4", "4 meals"}, {"5", "5 meals"}, {"6", "6 meals"},
	},
}

// ViewTab is a button of the view selector.
type ViewTab struct {
	View   View
	Label  string
	Active bool
}

// PlanView is the rendered part of a plan.
type PlanView struct {
	Name     string
	Overview string
	Totals   MacroText
	Charts   ChartSet
	Daily    MealList
	Weekly   WeekGrid
	Cards    MealList
	Tips     []string
	Shopping []string
}

// NewPlanView derives every view of plan. The charts are taken as given so
// a theme change can restyle them without touching the plan.
func NewPlanView(plan *diet.Plan, charts ChartSet) *PlanView {
	return &PlanView{
		Name:     plan.DisplayName(),
		Overview: string(plan.Overview),
		Totals:   newMacroText(plan.DailyTotals),
		Charts:   charts,
		Daily:    DayList(plan.Meals),
		Weekly:   WeeklyGrid(plan),
		Cards:    CardGrid(plan.Meals),
		Tips:     texts(plan.Tips),
		Shopping: texts(plan.ShoppingList),
	}
}

// Page is the model of the single application page.
type Page struct {
	Fields        fieldNames
	Form          diet.UserProfile
	Options       FormOptions
	APIKey        string
	Theme         Theme
	NextTheme     Theme
	Busy          bool
	ChromeHidden  bool
	Toasts        []Toast
	ToastDuration int
	Tabs          []ViewTab
	ActiveView    View
	Plan          *PlanView
}

type fieldNames struct {
	Age, Gender, Weight, Height, ActivityLevel, Goal, DietaryPreference string
	MealsPerDay, Allergies, Budget, CookingSkill, Notes                 string
}

var pageFields = fieldNames{
	Age:               diet.FieldAge,
	Gender:            diet.FieldGender,
	Weight:            diet.FieldWeight,
	Height:            diet.FieldHeight,
	ActivityLevel:     diet.FieldActivityLevel,
	Goal:              diet.FieldGoal,
	DietaryPreference: diet.FieldDietaryPreference,
	MealsPerDay:       diet.FieldMealsPerDay,
	Allergies:         diet.FieldAllergies,
	Budget:            diet.FieldBudget,
	CookingSkill:      diet.FieldCookingSkill,
	Notes:             diet.FieldNotes,
}

// NewPage builds the page model from s.
func NewPage(s PageState) *Page {
	theme := ParseTheme(string(s.Theme))
	view := s.View
	if _, ok := ParseView(string(view)); !ok {
		view = DefaultView
	}

	p := &Page{
		Fields:        pageFields,
		Form:          s.Profile,
		Options:       formOptions,
		APIKey:        s.APIKey,
		Theme:         theme,
		NextTheme:     theme.Toggle(),
		Busy:          s.Busy,
		ChromeHidden:  s.ChromeHidden,
		Toasts:        s.Toasts,
		ToastDuration: ToastDuration,
		ActiveView:    view,
	}
	for _, v := range Views {
		p.Tabs = append(p.Tabs, ViewTab{View: v, Label: v.Label(), Active: v == view})
	}
	if s.Plan != nil {
		p.Plan = NewPlanView(s.Plan, s.Charts)
	}
	return p
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	if err := pageTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

func texts(in []diet.Text) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t != "" {
			out = append(out, string(t))
		}
	}
	return out
}

// formatInput leaves unset numeric fields blank in the form.
func formatInput(v any) string {
	switch n := v.(type) {
	case int:
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	case float64:
		if n == 0 {
			return ""
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
