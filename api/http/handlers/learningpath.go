package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/curricula/api/http/presenter"
	"github.com/artem13815/curricula/pkg/curriculum"
)

type LearningPathHandler struct {
	uc curriculum.UseCase
}

func NewLearningPathHandler(uc curriculum.UseCase) *LearningPathHandler {
	return &LearningPathHandler{uc: uc}
}

type generatePathRequest struct {
	JobText string `json:"jobText"`
}

// Generate builds a personalized learning path from a job posting.
// @Summary Generate a learning path from job text
// @Tags    learning-paths
// @Accept  json
// @Produce json
// @Param   input body generatePathRequest true "Raw job-posting text"
// @Security BearerAuth
// @Success 201 {object} curriculum.LearningPath
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 422 {object} presenter.ErrorResponse
// @Failure 502 {object} presenter.ErrorResponse
// @Router  /learning-paths [post]
func (h *LearningPathHandler) Generate(c *fiber.Ctx) error {
	var req generatePathRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON body")
	}
	userID, err := actorID(c)
	if err != nil {
		return presenter.Error(c, http.StatusUnauthorized, "could not identify the user")
	}

	path, err := h.uc.Generate(c.Context(), userID, req.JobText)
	if err != nil {
		switch {
		case errors.Is(err, curriculum.ErrInsufficientInput):
			return presenter.Error(c, http.StatusBadRequest, "job text is too short, paste the full posting")
		case errors.Is(err, curriculum.ErrAnalysisContract):
			return presenter.Error(c, http.StatusUnprocessableEntity, "could not understand the job description, please rephrase")
		case errors.Is(err, curriculum.ErrUpstream):
			return presenter.Error(c, http.StatusBadGateway, "a dependent service is unavailable, please retry")
		default:
			return presenter.Error(c, http.StatusInternalServerError, err.Error())
		}
	}
	return presenter.JSON(c, http.StatusCreated, path)
}

// GetMine returns the caller's active learning path.
// @Summary Get the caller's learning path
// @Tags    learning-paths
// @Produce json
// @Security BearerAuth
// @Success 200 {object} curriculum.LearningPath
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /learning-paths/me [get]
func (h *LearningPathHandler) GetMine(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return presenter.Error(c, http.StatusUnauthorized, "could not identify the user")
	}
	path, err := h.uc.GetForUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, curriculum.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "no learning path generated yet")
		}
		return presenter.Error(c, http.StatusInternalServerError, err.Error())
	}
	return presenter.JSON(c, http.StatusOK, path)
}

func actorID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, _ := c.Locals("userId").(string)
	return uuid.Parse(userIDStr)
}
