package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/shared"
)

//go:embed diet_prompt.md
var dietPrompt string

var dietPromptTmpl = template.Must(template.New("diet").Parse(dietPrompt))

// AgentName labels generations in metrics.
const AgentName = "Nutritionist"

// Placeholders for optional profile fields left empty.
const (
	placeholderNone         = "None"
	placeholderNoPreference = "No preference"
)

var (
	jsonFence  = regexp.MustCompile("```json\\s*")
	plainFence = regexp.MustCompile("```\\s*")
)

type dietPromptData struct {
	Age               int
	Gender            string
	Weight            string
	Height            string
	ActivityLevel     string
	Goal              string
	DietaryPreference string
	MealsPerDay       int
	Allergies         string
	Budget            string
	CookingSkill      string
	Notes             string
}

// Result is a successfully generated plan plus the metadata of the call.
type Result struct {
	Plan *diet.Plan
	Meta shared.AgentMeta
}

// Requester turns a profile into a diet plan with a single generation call.
type Requester struct {
	textGen llm.TextGenerator
}

// NewRequester creates a new Requester.
func NewRequester(textGen llm.TextGenerator) *Requester {
	return &Requester{textGen: textGen}
}

// RequestPlan builds the prompt for profile, issues one upstream call with
// apiKey and decodes the reply. The profile is expected to be validated by the
// caller. The returned plan is not checked against the schema beyond decoding.
func (r *Requester) RequestPlan(ctx context.Context, profile diet.UserProfile, apiKey string) (Result, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return Result{}, shared.ErrMissingCredential
	}

	start := time.Now()
	prompt, err := BuildPrompt(profile)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build diet prompt: %w", err)
	}

	resp, err := r.textGen.GenerateContent(ctx, apiKey, prompt)
	if err != nil {
		return Result{}, classify(err)
	}

	meta := shared.AgentMeta{
		AgentName: AgentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	plan, err := ParsePlan(resp.Content)
	if err != nil {
		return Result{Meta: meta}, err
	}

	return Result{Plan: plan, Meta: meta}, nil
}

// BuildPrompt renders the instruction sent to the generator.
func BuildPrompt(p diet.UserProfile) (string, error) {
	data := dietPromptData{
		Age:               p.Age,
		Gender:            string(p.Gender),
		Weight:            formatFloat(p.WeightKg),
		Height:            formatFloat(p.HeightCm),
		ActivityLevel:     string(p.ActivityLevel),
		Goal:              string(p.Goal),
		DietaryPreference: string(p.DietaryPreference),
		MealsPerDay:       p.MealsPerDay,
		Allergies:         orPlaceholder(p.Allergies, placeholderNone),
		Budget:            orPlaceholder(p.Budget, placeholderNoPreference),
		CookingSkill:      string(p.CookingSkill),
		Notes:             orPlaceholder(p.Notes, placeholderNone),
	}

	var buf bytes.Buffer
	if err := dietPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripFences removes markdown code fences the model wraps around JSON.
func StripFences(text string) string {
	text = jsonFence.ReplaceAllString(text, "")
	text = plainFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ParsePlan decodes generated text into a plan.
func ParsePlan(text string) (*diet.Plan, error) {
	var plan diet.Plan
	if err := json.Unmarshal([]byte(StripFences(text)), &plan); err != nil {
		return nil, shared.NewError(shared.KindParseFailure, fmt.Errorf("failed to parse diet plan: %w", err))
	}
	return &plan, nil
}

func classify(err error) error {
	var sErr *llm.StatusError
	switch {
	case errors.As(err, &sErr):
		switch sErr.StatusCode {
		case http.StatusBadRequest, http.StatusForbidden:
			return &shared.Error{Kind: shared.KindInvalidCredential, Status: sErr.StatusCode, Err: err}
		case http.StatusTooManyRequests:
			return &shared.Error{Kind: shared.KindRateLimited, Status: sErr.StatusCode, Err: err}
		default:
			return &shared.Error{Kind: shared.KindUpstream, Status: sErr.StatusCode, Err: err}
		}
	case errors.Is(err, llm.ErrNoContent):
		return shared.NewError(shared.KindUnexpectedResponse, err)
	default:
		return shared.NewError(shared.KindUpstream, err)
	}
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
