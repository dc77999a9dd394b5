package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"servifix/middleware"
	"servifix/services/request"
	"servifix/utils"
)

// CreateRequest posts a new service request for the authenticated client.
func (h *HandlerBundle) CreateRequest(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	var input request.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	r, err := h.Requests.Create(userID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListMyRequests returns the authenticated client's requests.
func (h *HandlerBundle) ListMyRequests(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	requests, err := h.Requests.ListForClient(userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetRequest returns one request to its owner.
func (h *HandlerBundle) GetRequest(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	r, err := h.Requests.Get(userID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CancelRequest withdraws an unsettled request.
func (h *HandlerBundle) CancelRequest(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	if err := h.Requests.Cancel(userID, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// AvailableRequests returns the open requests within the technician's
// effective radius, nearest first.
func (h *HandlerBundle) AvailableRequests(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	feed, err := h.Requests.AvailableForTechnician(userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": feed})
}
