package inject

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"

	"github.com/lolparty/partywatch/internal/common/config"
	"github.com/lolparty/partywatch/internal/share"
	"go.uber.org/zap"
)

// NoopInjector logs the decision instead of injecting. Used when no helper
// command is configured.
type NoopInjector struct {
	logger *zap.Logger
}

var _ Injector = (*NoopInjector)(nil)

func NewNoopInjector(logger *zap.Logger) *NoopInjector {
	return &NoopInjector{logger: logger.Named("inject.noop")}
}

// Inject implements Injector.Inject
func (n *NoopInjector) Inject(_ context.Context, championID int64, shares []share.ReceivedShare) error {
	n.logger.Info("injection requested but no helper configured",
		zap.Int64("championId", championID),
		zap.Int("shares", len(shares)))
	return nil
}

// CommandInjector shells out to the external injection helper, passing the
// champion id as an argument and the share set as JSON on stdin.
type CommandInjector struct {
	logger  *zap.Logger
	command string
	args    []string
}

var _ Injector = (*CommandInjector)(nil)

func NewCommandInjector(logger *zap.Logger, cfg config.InjectorConfig) *CommandInjector {
	return &CommandInjector{
		logger:  logger.Named("inject.command"),
		command: cfg.Command,
		args:    cfg.Args,
	}
}

// Inject implements Injector.Inject
func (c *CommandInjector) Inject(ctx context.Context, championID int64, shares []share.ReceivedShare) error {
	payload, err := json.Marshal(shares)
	if err != nil {
		return err
	}

	args := append(append([]string{}, c.args...), strconv.FormatInt(championID, 10))
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stdin = bytes.NewReader(payload)

	out, err := cmd.CombinedOutput()
	if err != nil {
		c.logger.Error("injection helper failed",
			zap.Int64("championId", championID),
			zap.ByteString("output", out),
			zap.Error(err))
		return err
	}
	c.logger.Info("injection helper completed",
		zap.Int64("championId", championID),
		zap.Int("shares", len(shares)))
	return nil
}

// NewInjector picks the configured injector implementation.
func NewInjector(logger *zap.Logger, cfg config.InjectorConfig) Injector {
	if cfg.Command == "" {
		return NewNoopInjector(logger)
	}
	return NewCommandInjector(logger, cfg)
}
