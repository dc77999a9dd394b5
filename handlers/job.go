package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"servifix/middleware"
	"servifix/services/job"
	"servifix/utils"
)

// ListJobs returns the caller's jobs by role.
func (h *HandlerBundle) ListJobs(c *gin.Context) {
	userID, role := middleware.AuthContext(c)

	jobs, err := h.Jobs.ListForUser(userID, role)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob returns one job to a participant.
func (h *HandlerBundle) GetJob(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	j, err := h.Jobs.Get(userID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// UpdateJobStatus applies one state-machine move.
func (h *HandlerBundle) UpdateJobStatus(c *gin.Context) {
	userID, role := middleware.AuthContext(c)

	var input job.StatusUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	j, err := h.Jobs.UpdateStatus(userID, role, c.Param("id"), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// ApproveJob releases the escrow of a completed job.
func (h *HandlerBundle) ApproveJob(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	j, err := h.Jobs.Approve(userID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// DisputeJob opens a dispute on a completed job. Evidence files arrive as
// multipart uploads alongside the reason and category fields.
func (h *HandlerBundle) DisputeJob(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	input := job.DisputeInput{
		Reason:   c.PostForm("reason"),
		Category: c.PostForm("category"),
	}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		input.Evidence = form.File["evidence"]
	}

	j, err := h.Jobs.OpenDispute(c.Request.Context(), userID, c.Param("id"), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}
