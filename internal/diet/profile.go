package diet

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Gender of the person the plan is generated for.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ActivityLevel describes how active the person is during a typical week.
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// Goal is what the diet plan should help achieve.
type Goal string

const (
	GoalLoseWeight    Goal = "lose_weight"
	GoalMaintain      Goal = "maintain"
	GoalGainMuscle    Goal = "gain_muscle"
	GoalImproveHealth Goal = "improve_health"
)

// DietaryPreference restricts the kind of foods the plan may use.
type DietaryPreference string

const (
	PreferenceNone          DietaryPreference = "none"
	PreferenceVegetarian    DietaryPreference = "vegetarian"
	PreferenceVegan         DietaryPreference = "vegan"
	PreferencePescatarian   DietaryPreference = "pescatarian"
	PreferenceKeto          DietaryPreference = "keto"
	PreferencePaleo         DietaryPreference = "paleo"
	PreferenceMediterranean DietaryPreference = "mediterranean"
)

// CookingSkill hints at how elaborate the suggested meals can be.
type CookingSkill string

const (
	SkillBeginner     CookingSkill = "beginner"
	SkillIntermediate CookingSkill = "intermediate"
	SkillAdvanced     CookingSkill = "advanced"
)

// Form field names shared by the web form, the chat surface and profile files.
const (
	FieldAge               = "age"
	FieldGender            = "gender"
	FieldWeight            = "weight"
	FieldHeight            = "height"
	FieldActivityLevel     = "activityLevel"
	FieldGoal              = "goal"
	FieldDietaryPreference = "dietaryPreference"
	FieldMealsPerDay       = "mealsPerDay"
	FieldAllergies         = "allergies"
	FieldBudget            = "budget"
	FieldCookingSkill      = "cookingSkill"
	FieldNotes             = "additionalNotes"
)

// UserProfile is the input of a single plan request. It is never stored.
type UserProfile struct {
	Age               int               `json:"age" yaml:"age"`
	Gender            Gender            `json:"gender" yaml:"gender"`
	WeightKg          float64           `json:"weight" yaml:"weight"`
	HeightCm          float64           `json:"height" yaml:"height"`
	ActivityLevel     ActivityLevel     `json:"activityLevel" yaml:"activityLevel"`
	Goal              Goal              `json:"goal" yaml:"goal"`
	DietaryPreference DietaryPreference `json:"dietaryPreference" yaml:"dietaryPreference"`
	MealsPerDay       int               `json:"mealsPerDay" yaml:"mealsPerDay"`
	Allergies         string            `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	Budget            string            `json:"budget,omitempty" yaml:"budget,omitempty"`
	CookingSkill      CookingSkill      `json:"cookingSkill" yaml:"cookingSkill"`
	Notes             string            `json:"additionalNotes,omitempty" yaml:"additionalNotes,omitempty"`
}

// ValidationError lists the required fields that were left empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Validate checks that every required field is populated. Optional free-text
// fields are never checked.
func (p UserProfile) Validate() error {
	var missing []string
	if p.Age <= 0 {
		missing = append(missing, FieldAge)
	}
	if strings.TrimSpace(string(p.Gender)) == "" {
		missing = append(missing, FieldGender)
	}
	if p.WeightKg <= 0 {
		missing = append(missing, FieldWeight)
	}
	if p.HeightCm <= 0 {
		missing = append(missing, FieldHeight)
	}
	if strings.TrimSpace(string(p.ActivityLevel)) == "" {
		missing = append(missing, FieldActivityLevel)
	}
	if strings.TrimSpace(string(p.Goal)) == "" {
		missing = append(missing, FieldGoal)
	}
	if strings.TrimSpace(string(p.DietaryPreference)) == "" {
		missing = append(missing, FieldDietaryPreference)
	}
	if p.MealsPerDay < 1 {
		missing = append(missing, FieldMealsPerDay)
	}
	if strings.TrimSpace(string(p.CookingSkill)) == "" {
		missing = append(missing, FieldCookingSkill)
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// ProfileFromFields builds a profile from loosely typed key/value input, such
// as a submitted form. Numbers that fail to parse are left at zero so that
// Validate reports them as missing.
func ProfileFromFields(get func(key string) string) UserProfile {
	field := func(key string) string {
		return strings.TrimSpace(get(key))
	}

	age, _ := strconv.Atoi(field(FieldAge))
	weight, _ := strconv.ParseFloat(field(FieldWeight), 64)
	height, _ := strconv.ParseFloat(field(FieldHeight), 64)
	meals, _ := strconv.Atoi(field(FieldMealsPerDay))

	return UserProfile{
		Age:               age,
		Gender:            Gender(field(FieldGender)),
		WeightKg:          weight,
		HeightCm:          height,
		ActivityLevel:     ActivityLevel(field(FieldActivityLevel)),
		Goal:              Goal(field(FieldGoal)),
		DietaryPreference: DietaryPreference(field(FieldDietaryPreference)),
		MealsPerDay:       meals,
		Allergies:         field(FieldAllergies),
		Budget:            field(FieldBudget),
		CookingSkill:      CookingSkill(field(FieldCookingSkill)),
		Notes:             field(FieldNotes),
	}
}

// LoadProfile reads a YAML profile file.
func LoadProfile(path string) (UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UserProfile{}, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p UserProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return UserProfile{}, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return p, nil
}
