package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Victorkib/kisheka-construction-sub007/internal/audit"
	"github.com/Victorkib/kisheka-construction-sub007/internal/config"
	"github.com/Victorkib/kisheka-construction-sub007/internal/forecast"
	"github.com/Victorkib/kisheka-construction-sub007/internal/importer"
	"github.com/Victorkib/kisheka-construction-sub007/internal/ledger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/recalc"
	"github.com/Victorkib/kisheka-construction-sub007/internal/report"
	"github.com/Victorkib/kisheka-construction-sub007/internal/rescale"
	"github.com/Victorkib/kisheka-construction-sub007/internal/settlement"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
	"github.com/Victorkib/kisheka-construction-sub007/internal/transfer"
)

type application struct {
	config     appConfig
	policy     config.Policy
	logger     *logger.Logger
	store      *store.Storage
	audit      *audit.Recorder
	recalc     *recalc.Runner
	ledger     *ledger.Service
	rescale    *rescale.Service
	settlement *settlement.Service
	transfers  *transfer.Service
	reports    *report.Service
	forecast   *forecast.Service
	importer   *importer.Service
}

type appConfig struct {
	addr       string
	logLevel   string
	policyPath string
	db         dbConfig
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", app.handleCreateProject)
			r.Get("/", app.handleListProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", app.handleGetProject)
				r.Delete("/", app.handleDeleteProject)
				r.Put("/budget", app.handleUpdateProjectBudget)

				r.Post("/phases", app.handleCreatePhase)
				r.Get("/phases", app.handleListPhases)

				r.Get("/finances", app.handleGetFinances)
				r.Post("/investments", app.handleCreateInvestment)
				r.Get("/investments", app.handleListInvestments)

				r.Post("/expenses", app.handleCreateExpense)
				r.Get("/expenses", app.handleListExpenses)
				r.Get("/expenses/by-category", app.handleGetExpensesByCategory)
				r.Post("/expenses/import", app.handleImportExpenses)

				r.Post("/orders", app.handleSendOrder)
				r.Get("/orders", app.handleListOrders)

				r.Post("/transfers", app.handleRequestTransfer)
				r.Get("/transfers", app.handleListTransfers)

				r.Get("/reports/budget-execution", app.handleBudgetExecutionReport)
				r.Get("/forecast/runway", app.handleCapitalRunway)
				r.Post("/recalculate", app.handleRecalculate)
			})
		})

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/", app.handleGetOrder)
			r.Post("/response", app.handleSupplierResponse)
			r.Post("/approve-modification", app.handleApproveModification)
		})

		r.Route("/transfers/{transferID}", func(r chi.Router) {
			r.Post("/approve", app.handleApproveTransfer)
			r.Post("/reject", app.handleRejectTransfer)
		})

		r.Get("/audit", app.handleListAuditEntries)
	})

	return r
}

// run serves until SIGINT or SIGTERM, then drains the in-flight requests
// and the background workers before returning.
func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	app.logger.Info("api", "server started on %s", app.config.addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		app.logger.Info("api", "received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		app.logger.Error("api", "server shutdown: %v", err)
	}

	app.recalc.Shutdown()
	app.audit.Shutdown()
	return nil
}
