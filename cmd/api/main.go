package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildcrew/workforce-engine/internal/config"
	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/fixtures"
	appHTTP "github.com/buildcrew/workforce-engine/internal/handler/http"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
	"github.com/buildcrew/workforce-engine/internal/pkg/cron"
	"github.com/buildcrew/workforce-engine/internal/pkg/database"
	"github.com/buildcrew/workforce-engine/internal/pkg/sse"
	"github.com/buildcrew/workforce-engine/internal/repository/memory"
	"github.com/buildcrew/workforce-engine/internal/repository/postgresql"
	attendanceService "github.com/buildcrew/workforce-engine/internal/service/attendance"
	payrollService "github.com/buildcrew/workforce-engine/internal/service/payroll"
)

type repositories struct {
	attendance attendance.Repository
	workers    worker.Repository
	projects   project.Repository
	payments   payroll.PaymentRepository
	ledger     payroll.LedgerRepository
	close      func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With(slog.String("app", "workforce-engine"), slog.String("env", cfg.App.Env)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.System()
	location := cfg.Location()

	repos, err := openRepositories(ctx, cfg, clk)
	if err != nil {
		return err
	}
	defer repos.close()

	hub := sse.NewHub(64)
	attendanceSvc := attendanceService.NewAttendanceService(
		repos.attendance,
		repos.workers,
		repos.projects,
		clk,
		hub,
		attendanceService.Config{
			Location:       location,
			StandardHours:  cfg.Attendance.StandardHours,
			LateThreshold:  cfg.Attendance.LateThreshold,
			ShiftStart:     cfg.Attendance.ShiftStart,
			ShiftEnd:       cfg.Attendance.ShiftEnd,
			GeofenceRadius: cfg.Attendance.GeofenceRadius,
		},
	)
	payrollSvc := payrollService.NewPayrollService(
		repos.payments,
		repos.ledger,
		repos.attendance,
		repos.workers,
		clk,
		payrollService.Config{
			Location:    location,
			Concurrency: cfg.Payroll.Concurrency,
			Settings:    payrollSettings(cfg),
		},
	)

	scheduler := cron.NewScheduler()
	cron.NewPayrollJobs(payrollSvc, clk, location).RegisterJobs(scheduler, cfg.Cron.OverdueInterval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Env:            cfg.App.Env,
			Version:        cfg.App.Version,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.SlogLevel(),
		},
		appHTTP.NewAttendanceHandler(attendanceSvc, clk, location),
		appHTTP.NewPayrollHandler(payrollSvc, clk, location),
	)

	// WriteTimeout stays unset: the attendance stream is long-lived.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "storage", cfg.Storage.Type, "timezone", location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, clk clock.Clock) (*repositories, error) {
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{MaxConns: cfg.Database.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &repositories{
			attendance: postgresql.NewAttendanceRepository(db),
			workers:    postgresql.NewWorkerRepository(db),
			projects:   postgresql.NewProjectRepository(db),
			payments:   postgresql.NewPaymentRepository(db),
			ledger:     postgresql.NewLedgerRepository(db),
			close:      db.Close,
		}, nil

	default:
		repos := &repositories{
			attendance: memory.NewAttendanceRepository(),
			workers:    memory.NewWorkerRepository(),
			projects:   memory.NewProjectRepository(),
			payments:   memory.NewPaymentRepository(),
			ledger:     memory.NewLedgerRepository(),
			close:      func() {},
		}
		if cfg.Storage.SeedDemo {
			seeded, err := fixtures.SeedDemo(ctx, repos.workers, repos.projects, repos.ledger, clk.Now().In(cfg.Location()))
			if err != nil {
				return nil, err
			}
			slog.Info("Seeded demo directory", "workers", len(seeded.WorkerIDs), "projects", len(seeded.ProjectIDs))
		}
		return repos, nil
	}
}

func payrollSettings(cfg *config.Config) payroll.Settings {
	p := cfg.Payroll
	return payroll.Settings{
		StandardHours:          cfg.Attendance.StandardHours,
		OvertimeMultiplier:     p.OvertimeMultiplier,
		PaymentDueDays:         p.PaymentDueDays,
		ProvidentFundEnabled:   p.ProvidentFundEnabled,
		ProvidentFundRate:      p.ProvidentFundRate,
		StateInsuranceEnabled:  p.StateInsuranceEnabled,
		StateInsuranceRate:     p.StateInsuranceRate,
		ProfessionalTaxEnabled: p.ProfessionalTaxEnabled,
		ProfessionalTaxAmount:  p.ProfessionalTaxAmount,
		IncomeTaxEnabled:       p.IncomeTaxEnabled,
		IncomeTaxRate:          p.IncomeTaxRate,
	}
}
