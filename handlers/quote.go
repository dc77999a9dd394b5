package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"servifix/middleware"
	"servifix/services/quote"
	"servifix/utils"
)

// SubmitQuote records the authenticated technician's offer on a request.
func (h *HandlerBundle) SubmitQuote(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	var input quote.SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	q, err := h.Quotes.Submit(userID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// ListRequestQuotes returns a request's quotes to its owner.
func (h *HandlerBundle) ListRequestQuotes(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	quotes, err := h.Quotes.ListForRequest(userID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// MyQuotes returns the authenticated technician's quotes.
func (h *HandlerBundle) MyQuotes(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	quotes, err := h.Quotes.ListForTechnician(userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// AcceptQuote settles the request on this quote and returns the new job.
func (h *HandlerBundle) AcceptQuote(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	// The body is optional; an empty body accepts without a guarantee.
	var opts quote.AcceptOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
	}

	j, err := h.Quotes.Accept(userID, c.Param("id"), opts)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

// RejectQuote declines a pending quote.
func (h *HandlerBundle) RejectQuote(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	if err := h.Quotes.Reject(userID, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// CancelQuote withdraws the technician's own pending quote.
func (h *HandlerBundle) CancelQuote(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	if err := h.Quotes.Cancel(userID, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// EditQuote revises a pending quote's content.
func (h *HandlerBundle) EditQuote(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	var input quote.EditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	q, err := h.Quotes.Edit(userID, c.Param("id"), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}
