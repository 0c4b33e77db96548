package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"corebank-go/internal/config"
	"corebank-go/internal/loans"
	"corebank-go/internal/logger"
	"corebank-go/internal/models"
	"corebank-go/internal/notify"
	"corebank-go/internal/store"
	"corebank-go/internal/transfer"
)

type Server struct {
	cfg        *config.Config
	loanSchema *gojsonschema.Schema
	store      store.Store
	cache      loans.Cache
	loans      *loans.Service
	transfers  *transfer.Service
	hub        *notify.Hub
}

func NewServer(cfg *config.Config, st store.Store, c loans.Cache, loansSvc *loans.Service, transferSvc *transfer.Service, hub *notify.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors(cfg))
	r.Use(logging())

	loader := gojsonschema.NewReferenceLoader("file://./schemas/loan_application.schema.json")
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		panic(err)
	}

	s := &Server{
		cfg:        cfg,
		loanSchema: schema,
		store:      st,
		cache:      c,
		loans:      loansSvc,
		transfers:  transferSvc,
		hub:        hub,
	}

	// Auth
	r.POST("/v1/auth/register", s.authRegister)
	r.POST("/v1/auth/login", s.authLogin)

	// Protected Routes (User Token)
	authorized := r.Group("/v1")
	authorized.Use(authRequired())
	{
		authorized.POST("/accounts", s.createAccount)
		authorized.GET("/accounts", s.listAccounts)
		authorized.POST("/accounts/:number/deposit", s.deposit)
		authorized.GET("/transactions", s.listTransactions)
		authorized.GET("/analytics/summary", s.getSummary)
		authorized.POST("/loans", s.applyLoan)
		authorized.GET("/loans", s.listLoans)
		authorized.GET("/loans/:id", s.getLoan)
		authorized.POST("/loans/:id/emi", s.payEmi)
		authorized.POST("/loans/:id/preclose", s.precloseLoan)
		authorized.POST("/transfers", s.transferMoney)
		authorized.GET("/events", s.streamEvents)
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	return r
}

// abortWithDomainError maps the domain error kinds to HTTP responses with a
// machine-readable kind and a human message.
func abortWithDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(400, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(401, gin.H{"error": "unauthorized", "message": err.Error()})
	case errors.Is(err, models.ErrAccountNotFound):
		c.JSON(404, gin.H{"error": "account_not_found", "message": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(404, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, models.ErrLoanClosed):
		c.JSON(409, gin.H{"error": "loan_closed", "message": err.Error()})
	case errors.Is(err, models.ErrInsufficientBalance):
		c.JSON(400, gin.H{"error": "insufficient_balance", "message": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "server_error"})
	}
}

func cors(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.AllowOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// logging tags every request with an ID, threads it through the request
// context and writes one structured access log line per request.
func logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		logger.CtxInfo(ctx, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
