package httpserver

import (
	"encoding/base64"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/model"
)

const (
	requestIDKey = "grocer.requestID"
	accountKey   = "grocer.account"
)

// withAccount stores the authorized account in the request context.
func withAccount(c *gin.Context, a *model.Account) { c.Set(accountKey, a) }

// accountFrom fetches the authorized account from the request context.
func accountFrom(c *gin.Context) (*model.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil, false
	}
	a, ok := v.(*model.Account)
	return a, ok && a != nil
}

// bearerToken accepts both "Bearer <token>" and a raw token.
func bearerToken(header string) string {
	h := strings.TrimSpace(header)
	if len(h) >= 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// basicCredentials decodes "Basic base64(contact:password)". The password may contain ':'.
func basicCredentials(header string) (contact, password string, err error) {
	h := strings.TrimSpace(header)
	if len(h) < 6 || !strings.EqualFold(h[:6], "basic ") {
		return "", "", badBasicAuth()
	}
	raw, derr := base64.StdEncoding.DecodeString(strings.TrimSpace(h[6:]))
	if derr != nil {
		return "", "", badBasicAuth()
	}
	contact, password, ok := strings.Cut(string(raw), ":")
	if !ok || contact == "" {
		return "", "", badBasicAuth()
	}
	return contact, password, nil
}

func badBasicAuth() error {
	return errs.New(errs.Authentication, errs.CodeBadBasicAuth, "Incorrect format of decoded customer name and password")
}
