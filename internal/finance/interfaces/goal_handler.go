package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/logging"
)

type GoalHandler struct {
	service *application.GoalService
	logger  *logging.Logger
}

func NewGoalHandler(service *application.GoalService, logger *logging.Logger) *GoalHandler {
	return &GoalHandler{service: service, logger: logger.WithComponent("goals_http")}
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var goal domain.Goal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	goal.UserID = requestUserID(r)

	if err := h.service.CreateGoal(r.Context(), &goal); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.GetUserGoals(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	goal, err := h.service.GetGoal(r.Context(), requestUserID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.GoalPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	goal, err := h.service.UpdateGoal(r.Context(), requestUserID(r), r.PathValue("id"), patch)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGoal(r.Context(), requestUserID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Goal deleted."})
}

type goalProgressRequest struct {
	CurrentAmount float64 `json:"currentAmount"`
}

// UpdateProgress sets the saved amount; reaching the target completes the
// goal.
func (h *GoalHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req goalProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	goal, err := h.service.UpdateProgress(r.Context(), requestUserID(r), r.PathValue("id"), req.CurrentAmount)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Complete(w http.ResponseWriter, r *http.Request) {
	goal, err := h.service.MarkComplete(r.Context(), requestUserID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.Notifications(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}
