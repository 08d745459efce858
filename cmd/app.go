package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg        *config.Config
	pool       *postgres.Pool
	identities *postgres.IdentityRepository
	samples    *postgres.FaceSampleRepository
	records    *postgres.AttendanceRepository
	extractor  *extractor.Client

	attendance  *attendance.Service
	recognition *recognition.Service
	enrollment  *enrollment.Service
}

// loadConfig reads the configuration and installs the logger it names.
func loadConfig() *config.Config {
	cfg := config.Load()
	logging.Configure(cfg.Log.Level, cfg.Log.Format)
	return cfg
}

// policyFromConfig builds the attendance policy from the configured cutoff, timezone and location.
func policyFromConfig(cfg *config.AttendanceConfig) (attendance.Policy, error) {
	cutoff, err := cfg.CutoffDuration()
	if err != nil {
		return attendance.Policy{}, err
	}
	loc, err := cfg.LoadLocation()
	if err != nil {
		return attendance.Policy{}, err
	}
	place := cfg.Location
	if place == "" {
		place = constants.DefaultLocation
	}
	return attendance.Policy{LateCutoff: cutoff, Location: loc, DefaultPlace: place}, nil
}

// newApp connects to PostgreSQL (applying migrations) and wires the services.
// When withExtractor is set the embedding client is created and probed; a failed probe
// is logged and the client stays usable for embedding-only requests.
func newApp(ctx context.Context, withExtractor bool) (*app, error) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	policy, err := policyFromConfig(&cfg.Attendance)
	if err != nil {
		return nil, fmt.Errorf("invalid attendance settings: %w", err)
	}

	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	a := &app{
		cfg:        cfg,
		pool:       pool,
		identities: postgres.NewIdentityRepository(pool),
		samples:    postgres.NewFaceSampleRepository(pool),
		records:    postgres.NewAttendanceRepository(pool),
	}

	// A nil *Client must not end up inside a non-nil interface.
	var ext extractor.Extractor
	if withExtractor {
		a.extractor = extractor.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := a.extractor.Initialize(probeCtx); err != nil {
			logging.Default().Warn("Embedding server not reachable, image requests will fail until it is",
				"url", cfg.Embedding.URL, "error", err)
		}
		cancel()
		ext = a.extractor
	}

	a.attendance = attendance.NewService(a.records, a.identities, policy)
	a.recognition = recognition.NewService(a.samples, a.attendance, ext, cfg.Matching.Threshold)
	a.enrollment = enrollment.NewService(a.identities, a.samples, ext, enrollment.Options{
		Dim:       cfg.Embedding.Dim,
		Model:     cfg.Embedding.Model,
		Threshold: cfg.Matching.Threshold,
	})
	return a, nil
}

// Close releases the database pool.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
