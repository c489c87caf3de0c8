package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/and161185/grocer/internal/convert"
	"github.com/and161185/grocer/internal/errs"
)

func badBody(err error) error {
	return &errs.Error{Kind: errs.MissingField, Code: errs.CodeMissingField, Msg: "malformed request body", Err: err}
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Signup handles POST /customer/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req convert.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.log, badBody(err))
		return
	}
	a, err := h.customers.Signup(c.Request.Context(), convert.FromSignupRequest(req))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, convert.StatusResponse{ID: a.UUID, Status: convert.StatusRegistered})
}

// Login handles POST /customer/login with Basic credentials.
func (h *Handler) Login(c *gin.Context) {
	contact, password, err := basicCredentials(c.GetHeader("Authorization"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	s, a, err := h.customers.Login(c.Request.Context(), contact, password, c.ClientIP())
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	withAccount(c, a)
	c.Header(AccessTokenHeader, s.AccessToken)
	c.JSON(http.StatusOK, convert.ToLoginResponse(s, a))
}

// Logout handles POST /customer/logout.
func (h *Handler) Logout(c *gin.Context) {
	s, err := h.customers.Logout(c.Request.Context(), token(c))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.LogoutResponse{ID: s.UUID, Message: convert.MessageSignedOut})
}

// GetCustomer handles GET /customer.
func (h *Handler) GetCustomer(c *gin.Context) {
	a, err := h.customers.GetCustomer(c.Request.Context(), token(c))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	withAccount(c, a)
	c.JSON(http.StatusOK, convert.ToCustomerResponse(a, ""))
}

// UpdateCustomer handles PUT /customer.
func (h *Handler) UpdateCustomer(c *gin.Context) {
	var req convert.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.log, badBody(err))
		return
	}
	a, err := h.customers.UpdateCustomer(c.Request.Context(), token(c), req.FirstName, req.LastName)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToCustomerResponse(a, convert.StatusUpdated))
}

// ChangePassword handles PUT /customer/password. Runs after authorized().
func (h *Handler) ChangePassword(c *gin.Context) {
	a, ok := accountFrom(c)
	if !ok {
		abortWithError(c, h.log, errs.New(errs.Authorization, errs.CodeUnknownToken, "Customer is not Logged in."))
		return
	}
	var req convert.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.log, badBody(err))
		return
	}
	updated, err := h.customers.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword, a)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.StatusResponse{ID: updated.UUID, Status: convert.StatusPasswordUpdated})
}

// ListSessions handles GET /customer/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	list, err := h.customers.ListSessions(c.Request.Context(), token(c))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToSessionList(list, time.Now()))
}

// SaveAddress handles POST /address.
func (h *Handler) SaveAddress(c *gin.Context) {
	var req convert.SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.log, badBody(err))
		return
	}
	a, err := h.addresses.SaveAddress(c.Request.Context(), token(c), convert.FromSaveAddressRequest(req))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, convert.StatusResponse{ID: a.UUID, Status: convert.StatusAddressSaved})
}

// DeleteAddress handles DELETE /address/:address_id.
func (h *Handler) DeleteAddress(c *gin.Context) {
	a, err := h.addresses.DeleteAddress(c.Request.Context(), token(c), c.Param("address_id"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.StatusResponse{ID: a.UUID, Status: convert.StatusAddressDeleted})
}

// ListAddresses handles GET /address/customer.
func (h *Handler) ListAddresses(c *gin.Context) {
	list, err := h.addresses.ListAddresses(c.Request.Context(), token(c))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToAddressList(list))
}
