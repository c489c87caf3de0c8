package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/grocer/internal/convert"
	"github.com/and161185/grocer/internal/errs"
)

// statusFor maps a failure kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.InvalidEmail, errs.MissingField, errs.WeakPassword, errs.UpdateCustomer, errs.SaveAddress:
		return http.StatusBadRequest
	case errs.ContactAlreadyExists:
		return http.StatusConflict
	case errs.Authentication, errs.MalformedToken, errs.ExpiredToken:
		return http.StatusUnauthorized
	case errs.Authorization:
		if errs.CodeOf(err) == errs.CodeUnknownToken {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errs.AddressNotFound:
		return http.StatusNotFound
	case errs.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError answers {code,message}. Internal details are logged, never sent.
func abortWithError(c *gin.Context, log *zap.Logger, err error) {
	st := statusFor(err)
	body := convert.ErrorResponse{Code: errs.CodeOf(err), Message: errs.Message(err)}
	if code := body.Code; code == errs.CodeUnknownContact || code == errs.CodePasswordMismatch {
		// one answer for both so the response does not reveal registered contacts
		body = convert.ErrorResponse{Code: errs.CodePasswordMismatch, Message: "Invalid Credentials"}
	}
	if st == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		body = convert.ErrorResponse{Code: errs.CodeInfra, Message: "internal error"}
	} else {
		log.Info("request rejected",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("code", errs.CodeOf(err)),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(st, body)
}
