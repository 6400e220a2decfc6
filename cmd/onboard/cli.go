package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"waste-marketplace/onboarding/internal/approval"
	"waste-marketplace/onboarding/internal/config"
	"waste-marketplace/onboarding/internal/health"
	"waste-marketplace/onboarding/internal/logging"
	"waste-marketplace/onboarding/internal/onboarding/client"
	"waste-marketplace/onboarding/internal/onboarding/countdown"
	"waste-marketplace/onboarding/internal/onboarding/service"
	"waste-marketplace/onboarding/internal/onboarding/terminal"
	"waste-marketplace/onboarding/internal/storage"
	"waste-marketplace/onboarding/internal/telemetry"
	telemetryotel "waste-marketplace/onboarding/internal/telemetry/otel"
	"waste-marketplace/onboarding/internal/telemetry/producer"
)

const serviceName = "onboarding"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type cli struct {
	cfg       *config.Config
	logger    *zap.Logger
	closers   []func() error
	namespace string
}

func (c *cli) setupConfig(cmd *cobra.Command, _ []string) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	var w io.Writer = os.Stderr
	logFile, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return err
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		c.closers = append(c.closers, f.Close)
		w = f
	}
	c.logger = logging.New(cfg.LoggerLevel(), w)
	return nil
}

func (c *cli) close() {
	_ = c.logger.Sync()
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("close", zap.Error(err))
		}
	}
}

// storageNamespace returns STORAGE_NAMESPACE, or a generated id fixed for this process.
func (c *cli) storageNamespace() string {
	if c.namespace != "" {
		return c.namespace
	}
	c.namespace = c.cfg.StorageNamespace
	if c.namespace == "" {
		if c.cfg.StorageDriver != config.StorageMemory {
			c.logger.Warn("STORAGE_NAMESPACE not set; the session will not be found by later runs")
		}
		c.namespace = uuid.New().String()
	}
	return c.namespace
}

func (c *cli) openStore(ctx context.Context) (storage.Store, error) {
	store, closeStore, err := storage.Open(ctx, storage.Options{
		Driver:      c.cfg.StorageDriver,
		Namespace:   c.storageNamespace(),
		DatabaseURL: c.cfg.DatabaseURL,
		RedisAddr:   c.cfg.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	c.closers = append(c.closers, closeStore)
	return store, nil
}

func (c *cli) run(cmd *cobra.Command, _ []string) error {
	defer c.close()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flowID := uuid.New().String()
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:       c.cfg.OTLPEndpoint,
		Insecure:       c.cfg.OTLPInsecure,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.cfg.Env,
		FlowID:         flowID,
		Device:         c.storageNamespace(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	emitters := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(c.cfg.KafkaBrokersList(), c.cfg.FlowEventsTopic, c.logger)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		defer kafkaProducer.Close()
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	evaluator, err := approval.NewOPAEvaluatorFromFile(ctx, c.cfg.ApprovalPolicyFile, c.logger)
	if err != nil {
		return fmt.Errorf("approval policy: %w", err)
	}

	ctrl := service.New(service.Config{
		SellerLandingURL:       c.cfg.SellerLandingURL,
		BuyerLandingURL:        c.cfg.BuyerLandingURL,
		HomeURL:                c.cfg.HomeURL,
		ResendCountdownSeconds: c.cfg.ResendCountdownSeconds,
		RedirectDelay:          c.cfg.RedirectDelay(),
		OTPPrefill:             c.cfg.OTPPrefill,
	}, service.Deps{
		API:       client.New(c.cfg.OTPEndpoint, c.cfg.UserDetailsEndpoint, c.cfg.CSRFToken, c.cfg.HTTPTimeout()),
		Store:     store,
		Approval:  evaluator,
		Scheduler: countdown.NewTickerScheduler(),
		Events:    emitters,
		Logger:    c.logger,
		FlowID:    flowID,
	})
	defer ctrl.Close()
	c.logger.Info("onboarding started", zap.String("flow_id", ctrl.FlowID()), zap.String("storage", c.cfg.StorageDriver))

	out := cmd.OutOrStdout()
	presenter := terminal.New(cmd.InOrStdin(), out)
	ctrl.Bind(ctx, presenter)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	inputDone := make(chan error, 1)
	go func() { inputDone <- presenter.Run(runCtx) }()

	select {
	case <-ctrl.Done():
		r := ctrl.State().Redirect
		if r == nil {
			return nil
		}
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return nil
		}
		fmt.Fprintf(out, "-> %s\n", r.Target)
		return nil
	case err := <-inputDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Fprintln(out, "\nOnboarding not finished.")
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (c *cli) showSession(cmd *cobra.Command, _ []string) error {
	defer c.close()
	if c.cfg.StorageNamespace == "" {
		return errors.New("STORAGE_NAMESPACE must be set to read a stored session")
	}
	store, err := c.openStore(cmd.Context())
	if err != nil {
		return err
	}
	s, err := storage.LoadSession(cmd.Context(), store)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if s == nil {
		fmt.Fprintln(out, "No session stored.")
		return nil
	}
	fmt.Fprintf(out, "user_id:          %s\n", s.UserID)
	fmt.Fprintf(out, "user_role:        %s\n", s.Role)
	fmt.Fprintf(out, "login_timestamp:  %s\n", s.LoginTimestamp.Format(time.RFC3339))
	fmt.Fprintf(out, "is_logged_in:     %t\n", s.IsLoggedIn)
	fmt.Fprintf(out, "is_approved:      %t\n", s.IsApproved)
	fmt.Fprintf(out, "profile_complete: %t\n", s.ProfileComplete)
	return nil
}

func (c *cli) clearSession(cmd *cobra.Command, _ []string) error {
	defer c.close()
	if c.cfg.StorageNamespace == "" {
		return errors.New("STORAGE_NAMESPACE must be set to clear a stored session")
	}
	store, err := c.openStore(cmd.Context())
	if err != nil {
		return err
	}
	if err := storage.ClearSession(cmd.Context(), store); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
	return nil
}

func (c *cli) check(cmd *cobra.Command, _ []string) error {
	defer c.close()
	ctx := cmd.Context()
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	evaluator, err := approval.NewOPAEvaluatorFromFile(ctx, c.cfg.ApprovalPolicyFile, c.logger)
	if err != nil {
		return fmt.Errorf("approval policy: %w", err)
	}
	pinger, _ := store.(health.Pinger)
	r := health.NewChecker(pinger, evaluator).Check(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "storage (%s): %s\n", c.cfg.StorageDriver, okOrErr(r.Storage))
	fmt.Fprintf(out, "approval policy: %s\n", okOrErr(r.Policy))
	fmt.Fprintf(out, "status: %s\n", r.Status)
	if r.Status != health.StatusServing {
		return errors.New("not ready")
	}
	return nil
}

func okOrErr(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
