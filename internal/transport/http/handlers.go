package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/domain"
)

// Handler exposes the game use cases as JSON endpoints.
type Handler struct {
	completions *app.CompletionService
	answers     *app.AnswerService
	games       *app.GameService
	matchmaker  *app.Matchmaker
	validate    *validator.Validate
}

func NewHandler(completions *app.CompletionService, answers *app.AnswerService, games *app.GameService, matchmaker *app.Matchmaker) *Handler {
	return &Handler{
		completions: completions,
		answers:     answers,
		games:       games,
		matchmaker:  matchmaker,
		validate:    validator.New(),
	}
}

// decode reads a JSON body into dst and runs its validate tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s is %s", domain.ErrValidation, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

type completeSoloRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type soloResponse struct {
	Success bool `json:"success"`
	domain.SoloResult
}

func (h *Handler) CompleteSoloGame(w http.ResponseWriter, r *http.Request) {
	var req completeSoloRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.completions.CompleteSoloGame(r.Context(), UserID(r.Context()), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, soloResponse{Success: true, SoloResult: result})
}

type completeMatchRequest struct {
	MatchID string `json:"matchId" validate:"required"`
}

type matchResponse struct {
	Success bool `json:"success"`
	domain.MatchResult
}

func (h *Handler) CompleteMatch(w http.ResponseWriter, r *http.Request) {
	var req completeMatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.completions.CompleteMatch(r.Context(), UserID(r.Context()), req.MatchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Success: true, MatchResult: result})
}

type completeChallengeRequest struct {
	SessionID   string `json:"sessionId" validate:"required"`
	ChallengeID string `json:"challengeId" validate:"required"`
}

type challengeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	domain.ChallengeResult
}

func (h *Handler) CompleteDailyChallenge(w http.ResponseWriter, r *http.Request) {
	var req completeChallengeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.completions.CompleteDailyChallenge(r.Context(), UserID(r.Context()), req.SessionID, req.ChallengeID)
	switch {
	case errors.Is(err, domain.ErrTargetNotMet):
		// the run was recorded; report it alongside the refusal
		writeJSON(w, statusFor(err), challengeResponse{Error: err.Error(), ChallengeResult: result})
	case err != nil:
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, challengeResponse{Success: true, ChallengeResult: result})
	}
}

type verifyAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	UserAnswer string `json:"user_answer"`
}

func (h *Handler) VerifyAnswer(w http.ResponseWriter, r *http.Request) {
	var req verifyAnswerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	correct, err := h.answers.Verify(r.Context(), UserID(r.Context()), req.QuestionID, req.UserAnswer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, correct)
}

type findMatchRequest struct {
	UserID      string `json:"p_user_id" validate:"required"`
	Difficulty  string `json:"p_difficulty" validate:"required"`
	TimeControl string `json:"p_time_control" validate:"required"`
	IQRating    int    `json:"p_iq_rating" validate:"gte=0"`
}

func (h *Handler) FindMatch(w http.ResponseWriter, r *http.Request) {
	var req findMatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID != UserID(r.Context()) {
		writeError(w, domain.ErrForbidden)
		return
	}
	matchID, err := h.matchmaker.FindMatch(r.Context(), req.UserID, domain.Difficulty(req.Difficulty), req.TimeControl, req.IQRating)
	if err != nil {
		writeError(w, err)
		return
	}
	if matchID == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, matchID)
}

type startSessionRequest struct {
	Difficulty  string `json:"difficulty"`
	TimeControl string `json:"timeControl"`
	ChallengeID string `json:"challengeId"`
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.games.StartSession(r.Context(), UserID(r.Context()), domain.Difficulty(req.Difficulty), req.TimeControl, req.ChallengeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type submitAnswerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}

func (h *Handler) SubmitSessionAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	correct, err := h.answers.SubmitSoloAnswer(r.Context(), UserID(r.Context()), r.PathValue("id"), req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResult{QuestionID: req.QuestionID, Correct: correct})
}

func (h *Handler) SubmitMatchAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	correct, err := h.answers.SubmitMatchAnswer(r.Context(), UserID(r.Context()), r.PathValue("id"), req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResult{QuestionID: req.QuestionID, Correct: correct})
}

type joinQueueRequest struct {
	Difficulty  string `json:"difficulty" validate:"required"`
	TimeControl string `json:"timeControl" validate:"required"`
}

type queueResponse struct {
	Queued  bool   `json:"queued"`
	MatchID string `json:"matchId,omitempty"`
}

func (h *Handler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	var req joinQueueRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	matchID, err := h.matchmaker.JoinQueue(r.Context(), UserID(r.Context()), domain.Difficulty(req.Difficulty), req.TimeControl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{Queued: matchID == "", MatchID: matchID})
}

func (h *Handler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.matchmaker.LeaveQueue(r.Context(), UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{})
}

func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.matchmaker.QueueStatus(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
