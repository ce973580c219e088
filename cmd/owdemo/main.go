// Command owdemo performs one OpenWrap ad request against a real or mock
// endpoint and prints the returned targeting, the way an OTT player would
// before enriching its ad-server call.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/patrickwarner/openwrap-client/internal/config"
	"github.com/patrickwarner/openwrap-client/observability"
	"github.com/patrickwarner/openwrap-client/openwrap"
	"github.com/xorcare/pointer"
	"go.uber.org/zap"
)

type demoListener struct {
	done chan error
	resp *openwrap.AdResponse
}

func (l *demoListener) OnAdReceived(resp *openwrap.AdResponse) {
	l.resp = resp
	l.done <- nil
}

func (l *demoListener) OnAdFailed(code int, message string) {
	l.done <- fmt.Errorf("ad load failed with code %d: %s", code, message)
}

func main() {
	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	metrics := observability.NewPrometheusRegistry()

	shared := openwrap.NewConfiguration()
	shared.SetLinearity(openwrap.LinearityLinear)
	shared.SetAppInfo(&openwrap.AppInfo{
		Name:       "OpenWrap OTT Demo",
		Bundle:     "com.example.ottdemo",
		Domain:     "example.com",
		StoreURL:   "https://play.google.com/store/apps/details?id=com.example.ottdemo",
		Categories: "IAB1,IAB1-6",
		Paid:       pointer.Bool(false),
	})

	source := &openwrap.StaticIdentifierSource{}
	if cfg.AdvertisingID != "" {
		source.Info = &openwrap.AdvertisingInfo{
			ID:              cfg.AdvertisingID,
			LimitAdTracking: cfg.LimitAdTracking,
		}
	} else {
		source.Err = fmt.Errorf("no advertising id configured")
	}

	provider := openwrap.NewIdentifierProvider(source, logger, metrics)
	client := openwrap.NewNetworkClient(logger, metrics)
	loader := openwrap.NewAdsLoader(shared, provider, client, logger)

	listener := &demoListener{done: make(chan error, 1)}
	loader.SetListener(listener)

	req := openwrap.NewAdRequest(cfg.PublisherID, cfg.ProfileID, cfg.AdUnitID,
		openwrap.AdSize{Width: cfg.AdWidth, Height: cfg.AdHeight})
	req.SetEndpoint(cfg.Endpoint)
	req.SetNetworkTimeout(cfg.NetworkTimeout)
	req.SetDebug(true)

	logger.Info("loading ad",
		zap.String("publisher_id", cfg.PublisherID),
		zap.Int("profile_id", cfg.ProfileID),
		zap.String("ad_unit_id", cfg.AdUnitID))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.NetworkTimeout+5*time.Second)
	defer cancel()
	loader.Load(ctx, req)

	select {
	case err := <-listener.done:
		if err != nil {
			logger.Error("ad load failed", zap.Error(err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Error("ad load timed out")
		os.Exit(1)
	}

	targeting := listener.resp.TargetingValues()
	if targeting == nil {
		logger.Info("response carried no targeting")
		return
	}

	logger.Info("targeting received", zap.Any("targeting", targeting))
	fmt.Printf("cust_params=%s\n", openwrap.EncodeTargetingParams(targeting))
}
