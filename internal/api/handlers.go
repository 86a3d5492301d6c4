package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/david/grant-hunter/internal/ai"
	"github.com/david/grant-hunter/internal/auth"
	"github.com/david/grant-hunter/internal/db"
	"github.com/david/grant-hunter/internal/models"
	"github.com/david/grant-hunter/internal/triage"
)

func errJSON(c echo.Context, code int, err error) error {
	return c.JSON(code, map[string]string{"error": err.Error()})
}

// mapTriageErr translates service sentinels to HTTP codes.
func mapTriageErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return errJSON(c, http.StatusNotFound, err)
	case errors.Is(err, triage.ErrInvalidTransition),
		errors.Is(err, triage.ErrInvalidStatusChange):
		return errJSON(c, http.StatusConflict, err)
	case errors.Is(err, triage.ErrSnoozeInPast),
		errors.Is(err, triage.ErrUnknownSection):
		return errJSON(c, http.StatusBadRequest, err)
	case errors.Is(err, triage.ErrNotAuthenticated):
		return errJSON(c, http.StatusUnauthorized, err)
	case errors.Is(err, triage.ErrApplicationCreateFailed):
		// Approval stuck; the client retries the same call to repair.
		return errJSON(c, http.StatusServiceUnavailable, err)
	default:
		c.Logger().Errorf("triage: %v", err)
		return errJSON(c, http.StatusInternalServerError, err)
	}
}

func (s *Server) userAndID(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return userID, id, nil
}

// ---- auth ----

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.Auth.Signup(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return errJSON(c, http.StatusConflict, err)
		}
		if errors.Is(err, auth.ErrInvalidCreds) {
			return errJSON(c, http.StatusBadRequest, err)
		}
		return errJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.Auth.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return errJSON(c, http.StatusUnauthorized, err)
		}
		return errJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ---- search ----

type searchRequest struct {
	Query   string           `json:"query"`
	Filters ai.SearchFilters `json:"filters"`
}

func (s *Server) handleSearch(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	result, err := s.Pipeline.Run(c.Request().Context(), userID, req.Query, req.Filters)
	if err != nil {
		c.Logger().Errorf("search run: %v", err)
		return errJSON(c, http.StatusBadGateway, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ---- scored opportunities ----

func (s *Server) handleListOpportunities(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	params := db.ScoredListParams{
		Decision:   c.QueryParam("decision"),
		HITLStatus: c.QueryParam("hitl_status"),
		Actionable: c.QueryParam("actionable") == "true",
	}
	if params.Decision != "" {
		if _, err := models.ParseDecision(params.Decision); err != nil {
			return errJSON(c, http.StatusBadRequest, err)
		}
	}
	if params.HITLStatus != "" {
		if _, err := models.ParseHITLStatus(params.HITLStatus); err != nil {
			return errJSON(c, http.StatusBadRequest, err)
		}
	}

	opps, err := s.Store.ListScored(c.Request().Context(), userID, params)
	if err != nil {
		c.Logger().Errorf("list scored: %v", err)
		return errJSON(c, http.StatusInternalServerError, err)
	}
	if opps == nil {
		opps = []models.ScoredOpportunity{}
	}
	return c.JSON(http.StatusOK, map[string]any{"opportunities": opps})
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	scored, err := s.Store.GetScoredOpportunity(c.Request().Context(), userID, id)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, scored)
}

func (s *Server) handleApprove(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	app, err := s.Triage.Approve(c.Request().Context(), userID, id)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"application": app})
}

func (s *Server) handleReject(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	if err := s.Triage.Reject(c.Request().Context(), userID, id); err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"hitl_status": string(models.HITLRejected)})
}

type snoozeRequest struct {
	SnoozedUntil *time.Time `json:"snoozed_until"`
}

func (s *Server) handleSnooze(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	var req snoozeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	until, err := s.Triage.Snooze(c.Request().Context(), userID, id, req.SnoozedUntil)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"hitl_status":   models.HITLSnoozed,
		"snoozed_until": until,
	})
}

func (s *Server) handleReopen(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	if err := s.Triage.Reopen(c.Request().Context(), userID, id); err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"hitl_status": string(models.HITLPending)})
}

// ---- applications ----

func (s *Server) handleListApplications(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	apps, err := s.Store.ListApplications(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("list applications: %v", err)
		return errJSON(c, http.StatusInternalServerError, err)
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return c.JSON(http.StatusOK, map[string]any{"applications": apps})
}

func (s *Server) handleGetApplication(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	app, err := s.Store.GetApplication(c.Request().Context(), userID, id)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

type contentRequest struct {
	Sections map[string]string `json:"sections"`
}

func (s *Server) handleUpdateContent(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	var req contentRequest
	if err := c.Bind(&req); err != nil || len(req.Sections) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sections are required"})
	}

	app, err := s.Triage.UpdateSections(c.Request().Context(), userID, id, req.Sections)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleAdvanceStatus(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	target, err := models.ParseApplicationStatus(req.Status)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err)
	}

	app, err := s.Triage.AdvanceStatus(c.Request().Context(), userID, id, target)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

type draftRequest struct {
	Section string `json:"section"`
}

func (s *Server) handleGenerateDraft(c echo.Context) error {
	userID, id, err := s.userAndID(c)
	if err != nil {
		return err
	}

	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	text, err := s.Triage.GenerateDraft(c.Request().Context(), userID, id, req.Section)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"section": req.Section, "text": text})
}

// ---- metrics & profile ----

func (s *Server) handleMetrics(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	metrics, err := s.Triage.Metrics(c.Request().Context(), userID)
	if err != nil {
		return mapTriageErr(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}

func (s *Server) handleGetProfile(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	profile, err := s.Store.GetCompanyProfile(c.Request().Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusOK, &models.CompanyProfile{UserID: userID})
	}
	if err != nil {
		c.Logger().Errorf("get profile: %v", err)
		return errJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var profile models.CompanyProfile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	profile.UserID = userID
	if profile.ActiveProposalCount < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "active_proposal_count must be >= 0"})
	}

	if err := s.Store.UpsertCompanyProfile(c.Request().Context(), &profile); err != nil {
		c.Logger().Errorf("update profile: %v", err)
		return errJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, profile)
}
