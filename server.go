package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
)

const defaultPort = "8080"

var tracer = otel.Tracer("jurukasa-ledger")

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that attached errors to the context.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// userMiddleware records who performed a mutation. The ledger runs behind a
// trusted gateway that sets x-user-name; created_by falls back to "api" when
// the header is absent.
func userMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userName := c.GetHeader("x-user-name")
		if userName == "" {
			userName = "api"
		}
		c.Request = c.Request.WithContext(utils.SetUserNameInContext(c.Request.Context(), userName))
		c.Next()
	}
}

func registerRoutes(r *gin.Engine) {
	r.POST("/accounts", createAccountHandler)
	r.GET("/accounts", getAccountsHandler)
	r.GET("/accounts/:id", getAccountHandler)
	r.PUT("/accounts/:id", updateAccountHandler)
	r.DELETE("/accounts/:id", deleteAccountHandler)
	r.POST("/accounts/:id/active", markAccountActiveHandler)
	r.POST("/accounts/:id/tags", tagAccountHandler)
	r.DELETE("/accounts/:id/tags/:tag", untagAccountHandler)
	r.GET("/accounts/:id/tree-balance", accountTreeBalanceHandler)

	r.POST("/journal-entries", draftJournalEntryHandler)
	r.GET("/journal-entries", paginateJournalEntriesHandler)
	r.GET("/journal-entries/:id", getJournalEntryHandler)
	r.PUT("/journal-entries/:id", updateJournalEntryHandler)
	r.DELETE("/journal-entries/:id", deleteJournalEntryHandler)
	r.POST("/journal-entries/:id/lines", addJournalEntryLineHandler)
	r.DELETE("/journal-entries/:id/lines/:lineNumber", removeJournalEntryLineHandler)
	r.POST("/journal-entries/:id/post", postJournalEntryHandler)

	r.POST("/fiscal-years", createFiscalYearHandler)
	r.GET("/fiscal-years", getFiscalYearsHandler)
	r.GET("/fiscal-years/:id", getFiscalYearHandler)
	r.PUT("/fiscal-years/:id", updateFiscalYearHandler)
	r.DELETE("/fiscal-years/:id", deleteFiscalYearHandler)
	r.POST("/fiscal-years/:id/close", closeFiscalYearHandler)
	r.POST("/fiscal-years/:id/reverse", reverseFiscalYearHandler)
	r.GET("/fiscal-years/:id/account-mutations", fiscalYearAccountMutationsHandler)

	r.POST("/reconciliations", createReconciliationSessionHandler)
	r.GET("/reconciliations/:id", getReconciliationSessionHandler)
	r.PATCH("/reconciliations/:id", updateReconciliationSessionHandler)
	r.DELETE("/reconciliations/:id", deleteReconciliationSessionHandler)
	r.POST("/reconciliations/:id/items", addStatementItemHandler)
	r.DELETE("/reconciliations/:id/items/:itemId", deleteStatementItemHandler)
	r.POST("/reconciliations/:id/items/:itemId/match", matchStatementItemHandler)
	r.DELETE("/reconciliations/:id/items/:itemId/match", unmatchStatementItemHandler)
	r.POST("/reconciliations/:id/complete", completeReconciliationHandler)
	r.GET("/reconciliations/:id/outstanding", outstandingTransactionsHandler)
	r.GET("/reconciliations/:id/summary", reconciliationSummaryHandler)
	r.GET("/reconciliations/:id/discrepancies", reconciliationDiscrepanciesHandler)

	r.POST("/balance-reports", createBalanceReportHandler)
	r.GET("/balance-reports", getBalanceReportsHandler)
	r.GET("/balance-reports/:id", getBalanceReportHandler)
	r.GET("/balance-reports/:id/render", renderBalanceReportHandler)
	r.GET("/balance-reports/:id/export", exportBalanceReportHandler)

	r.GET("/reports/trial-balance", trialBalanceHandler)
	r.GET("/reports/balance-sheet", balanceSheetHandler)
	r.GET("/reports/income-statement", incomeStatementHandler)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP; until the database is ready every ledger
	// endpoint returns 503.
	r := gin.New()
	// behind a trusted gateway; client IPs are not consulted
	utils.ErrorPanic(r.SetTrustedProxies(nil))
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-user-name", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(userMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("ledger API listening on port ", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
