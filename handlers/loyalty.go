package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"servifix/middleware"
	"servifix/utils"
)

// GetLoyalty returns the authenticated client's points balance and history.
func (h *HandlerBundle) GetLoyalty(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	user, err := h.Users.GetByID(userID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "account not found", "")
		return
	}
	c.JSON(http.StatusOK, user.Loyalty)
}

// RedeemPoints converts whole point blocks into a discount amount.
func (h *HandlerBundle) RedeemPoints(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	var input struct {
		Points int `json:"points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	user, err := h.Users.GetByID(userID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "account not found", "")
		return
	}

	consumed, discount, err := h.Loyalty.Redeem(user, input.Points)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"consumed": consumed,
		"discount": discount,
		"balance":  user.Loyalty.Balance,
	})
}
