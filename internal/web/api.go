package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/app"
	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/render"
	"ai-diet-planner/internal/session"
	"ai-diet-planner/internal/shared"
)

// apiKeyHeader carries the credential on JSON requests. Without it the
// stored key of the client is used.
const apiKeyHeader = "X-Goog-Api-Key"

type planResponse struct {
	Plan   *diet.Plan      `json:"plan"`
	Charts render.ChartSet `json:"charts"`
	Views  planViews       `json:"views"`
}

type planViews struct {
	Daily  render.MealList `json:"daily"`
	Weekly render.WeekGrid `json:"weekly"`
	Cards  render.MealList `json:"cards"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

func newPlanResponse(st *session.State) planResponse {
	plan := st.Plan()
	return planResponse{
		Plan:   plan,
		Charts: st.Charts(),
		Views: planViews{
			Daily:  render.DayList(plan.Meals),
			Weekly: render.WeeklyGrid(plan),
			Cards:  render.CardGrid(plan.Meals),
		},
	}
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)

	var profile diet.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "invalid profile: " + err.Error()})
		return
	}

	if err := st.BeginRequest(); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "Busy", Message: msgBusy})
		return
	}
	defer st.EndRequest()

	apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	if apiKey == "" {
		stored, err := s.app.Prefs().APIKey(r.Context(), st.ClientID())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load API key")
		}
		apiKey = stored
	}

	plan, err := s.app.GeneratePlan(generationContext(r), app.SurfaceAPI, profile, apiKey)
	if err != nil {
		writeError(w, err)
		return
	}

	st.SetProfile(profile)
	st.SetPlan(plan)
	writeJSON(w, http.StatusCreated, newPlanResponse(st))
}

func (s *Server) handleCurrentPlan(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	if st.Plan() == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotFound", Message: msgNoPlan})
		return
	}
	writeJSON(w, http.StatusOK, newPlanResponse(st))
}

func writeError(w http.ResponseWriter, err error) {
	var sErr *shared.Error
	if !errors.As(err, &sErr) {
		sErr = shared.NewError(shared.KindUpstream, err)
	}

	resp := errorResponse{Error: sErr.Kind.String(), Message: sErr.Message()}
	var vErr *diet.ValidationError
	if errors.As(err, &vErr) {
		resp.Missing = vErr.Missing
	}
	writeJSON(w, statusFor(sErr.Kind), resp)
}

func statusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindValidationIncomplete:
		return http.StatusBadRequest
	case shared.KindMissingCredential, shared.KindInvalidCredential:
		return http.StatusUnauthorized
	case shared.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
