package web

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/app"
	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/export"
	"ai-diet-planner/internal/metrics"
	"ai-diet-planner/internal/prefs"
	"ai-diet-planner/internal/render"
	"ai-diet-planner/internal/session"
	"ai-diet-planner/internal/shared"
)

// Notification texts.
const (
	msgPlanGenerated = "Diet plan generated successfully!"
	msgKeySaved      = "API key saved successfully!"
	msgKeyEmpty      = "Please enter an API key."
	msgBusy          = "A diet plan is already being generated. Please wait."
	msgNoPlan        = "Generate a diet plan first."
	msgExported      = "Plan downloaded!"
	msgExportFailed  = "Failed to generate the plan document."
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)

	apiKey, err := s.app.Prefs().APIKey(r.Context(), st.ClientID())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load API key")
	}

	var buf bytes.Buffer
	if err := render.NewPage(st.Snapshot(apiKey)).Render(&buf); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

// backToPage finishes a form action by redirecting to the page, where queued
// toasts are shown.
func backToPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSubmitPlan(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	defer backToPage(w, r)

	if err := r.ParseForm(); err != nil {
		st.Notify(render.ToastError, shared.ErrValidationIncomplete.Message())
		return
	}
	profile := diet.ProfileFromFields(r.PostForm.Get)
	st.SetProfile(profile)

	if err := st.BeginRequest(); err != nil {
		st.Notify(render.ToastError, msgBusy)
		return
	}
	defer st.EndRequest()

	apiKey, err := s.app.Prefs().APIKey(r.Context(), st.ClientID())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load API key")
	}

	plan, err := s.app.GeneratePlan(generationContext(r), app.SurfaceWeb, profile, apiKey)
	if err != nil {
		st.Notify(render.ToastError, userMessage(err))
		return
	}

	st.SetPlan(plan)
	st.Notify(render.ToastSuccess, msgPlanGenerated)
}

func (s *Server) handleSaveAPIKey(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	defer backToPage(w, r)

	err := s.app.Prefs().SaveAPIKey(r.Context(), st.ClientID(), r.PostFormValue("apiKey"))
	switch {
	case errors.Is(err, prefs.ErrEmptyAPIKey):
		st.Notify(render.ToastError, msgKeyEmpty)
	case err != nil:
		log.Error().Err(err).Msg("Failed to save API key")
		st.Notify(render.ToastError, "Failed to save API key.")
	default:
		st.Notify(render.ToastSuccess, msgKeySaved)
	}
}

// handleTheme switches the theme. With no explicit value it toggles.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	defer backToPage(w, r)

	theme := st.Theme().Toggle()
	if v := r.PostFormValue("theme"); v != "" {
		theme = render.ParseTheme(v)
	}

	st.SetTheme(theme)
	if err := s.app.Prefs().SaveTheme(r.Context(), st.ClientID(), theme); err != nil {
		log.Warn().Err(err).Msg("Failed to save theme")
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, ok := render.ParseView(mux.Vars(r)["view"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	stateFrom(r).SetView(view)
	backToPage(w, r)
}

// handleExport streams the current plan as a workbook. The page chrome is
// hidden while the document is being built.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)

	plan := st.Plan()
	if plan == nil {
		st.Notify(render.ToastError, msgNoPlan)
		backToPage(w, r)
		return
	}

	var buf bytes.Buffer
	err := func() error {
		defer st.HideChrome()()
		return s.app.Exporter().Write(&buf, plan)
	}()

	if err != nil {
		log.Error().Err(err).Msg("Export failed")
		st.Notify(render.ToastError, msgExportFailed)
		backToPage(w, r)
		return
	}

	st.Notify(render.ToastSuccess, msgExported)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := metrics.GetSysHealth(s.app.Config().DatabasePath)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime":     health.Uptime.String(),
		"goroutines": health.Goroutines,
		"allocMB":    health.AllocMB,
		"clients":    s.sessions.Len(),
	})
}

// userMessage is the notification text for a failed action.
func userMessage(err error) string {
	var sErr *shared.Error
	if errors.As(err, &sErr) {
		return sErr.Message()
	}
	if errors.Is(err, session.ErrBusy) {
		return msgBusy
	}
	return "Something went wrong. Please try again."
}
