// Package httpserver exposes the customer and address services over HTTP.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/grocer/internal/model"
	"github.com/and161185/grocer/internal/service"
)

// AccessTokenHeader carries a freshly issued session token.
const AccessTokenHeader = "access-token"

// CustomerAPI is the customer service as seen by the HTTP layer.
type CustomerAPI interface {
	Signup(ctx context.Context, in service.SignupInput) (*model.Account, error)
	Login(ctx context.Context, contact, password, ip string) (*model.Session, *model.Account, error)
	Logout(ctx context.Context, token string) (*model.Session, error)
	Authorize(ctx context.Context, token string) (*model.Account, error)
	GetCustomer(ctx context.Context, token string) (*model.Account, error)
	UpdateCustomer(ctx context.Context, token, firstName, lastName string) (*model.Account, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string, a *model.Account) (*model.Account, error)
	ListSessions(ctx context.Context, token string) ([]model.Session, error)
}

// AddressAPI is the address service as seen by the HTTP layer.
type AddressAPI interface {
	SaveAddress(ctx context.Context, token string, in service.AddressInput) (*model.Address, error)
	DeleteAddress(ctx context.Context, token, addressID string) (*model.Address, error)
	ListAddresses(ctx context.Context, token string) ([]model.Address, error)
}

// Pinger reports database reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the router.
type Deps struct {
	Customers   CustomerAPI
	Addresses   AddressAPI
	DB          Pinger
	Log         *zap.Logger
	CORSOrigins []string
}

// Handler serves the HTTP API.
type Handler struct {
	customers CustomerAPI
	addresses AddressAPI
	db        Pinger
	log       *zap.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	h := &Handler{customers: d.Customers, addresses: d.Addresses, db: d.DB, log: d.Log}

	r := gin.New()
	r.Use(RequestID(), Logging(d.Log), Recovery(d.Log), CORS(d.CORSOrigins))

	r.GET("/healthz", h.Health)

	customer := r.Group("/customer")
	customer.POST("/signup", h.Signup)
	customer.POST("/login", h.Login)
	customer.POST("/logout", h.Logout)
	customer.GET("", h.GetCustomer)
	customer.PUT("", h.UpdateCustomer)
	customer.PUT("/password", h.authorized(), h.ChangePassword)
	customer.GET("/sessions", h.ListSessions)

	address := r.Group("/address")
	address.POST("", h.SaveAddress)
	address.GET("/customer", h.ListAddresses)
	address.DELETE("/:address_id", h.DeleteAddress)

	return r
}

// NewServer wraps the router into an http.Server with conservative timeouts.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// authorized runs the authorization gate and stores the account for the next handler.
func (h *Handler) authorized() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := h.customers.Authorize(c.Request.Context(), token(c))
		if err != nil {
			abortWithError(c, h.log, err)
			return
		}
		withAccount(c, a)
		c.Next()
	}
}

func token(c *gin.Context) string {
	return bearerToken(c.GetHeader("Authorization"))
}
