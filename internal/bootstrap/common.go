package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/fixed"
	"github.com/meridianhq/execore/internal/instrument"
	"github.com/meridianhq/execore/internal/model"
)

type operation func(ctx context.Context) error

// gracefulShutdown waits for termination syscalls and doing clean up operations after received it.
func gracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]operation) <-chan struct{} {
	wait := make(chan struct{})
	go func() {
		s := make(chan os.Signal, 1)

		// add any other syscalls that you want to be notified with
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		<-s

		logrus.Info("shutting down")

		// set timeout for the ops to be done to prevent system hang
		timeoutFunc := time.AfterFunc(timeout, func() {
			logrus.Error(fmt.Sprintf("timeout %d ms has been elapsed, force exit", timeout.Milliseconds()))
			os.Exit(0)
		})

		defer timeoutFunc.Stop()

		var wg sync.WaitGroup

		// Do the operations asynchronously to save time
		for key, op := range ops {
			wg.Add(1)
			innerOp := op
			innerKey := key
			go func() {
				defer wg.Done()

				logrus.Info(fmt.Sprintf("cleaning up: %s", innerKey))
				if err := innerOp(ctx); err != nil {
					logrus.Error(fmt.Sprintf("%s: clean up failed: %s", innerKey, err.Error()))
					return
				}

				logrus.Info(fmt.Sprintf("%s was shutdown gracefully", innerKey))
			}()
		}

		wg.Wait()

		close(wait)
	}()

	return wait
}

func parseOMSType(raw string) (model.OMSType, error) {
	switch model.OMSType(raw) {
	case model.OMSTypeNetting, model.OMSTypeHedging:
		return model.OMSType(raw), nil
	case "":
		return model.OMSTypeNetting, nil
	default:
		return "", fmt.Errorf("unknown oms type %q", raw)
	}
}

// buildInstrumentRegistry loads the configured instrument catalog. The
// catalog is what event producers price commissions against, so a
// malformed entry is fatal at startup rather than a runtime surprise.
func buildInstrumentRegistry(configs []config.InstrumentConfig) (*instrument.Registry, error) {
	registry := instrument.NewRegistry()

	for _, cfg := range configs {
		security, err := model.SecurityFromSerializableString(cfg.Security)
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", cfg.Security, err)
		}

		base, err := model.CurrencyFromString(cfg.BaseCurrency)
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", cfg.Security, err)
		}

		quote, err := model.CurrencyFromString(cfg.QuoteCurrency)
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", cfg.Security, err)
		}

		pair, err := instrument.NewCurrencyPair(
			security, base, quote,
			cfg.PricePrecision, cfg.SizePrecision,
			fixed.FromDecimal(cfg.MakerFee), fixed.FromDecimal(cfg.TakerFee),
			cfg.IsInverse,
		)
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", cfg.Security, err)
		}

		registry.Add(pair)
		logrus.Info("loaded instrument: ", security.SerializableString())
	}

	return registry, nil
}
