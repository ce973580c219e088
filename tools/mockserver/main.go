// Command mockserver runs a local stand-in for the OpenWrap video endpoint.
// It answers /video/json with a canned targeting document and supports
// latency and error injection for exercising the client's retry and timeout
// paths.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickwarner/openwrap-client/internal/config"
	"github.com/patrickwarner/openwrap-client/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	addr      string
	latency   time.Duration
	failEvery int
	failCode  int
	noTarget  bool
)

var requestCount atomic.Uint64

func main() {
	cfg := config.Load()
	flag.StringVar(&addr, "addr", cfg.MockServerAddr, "listen address")
	flag.DurationVar(&latency, "latency", cfg.MockServerLatency, "artificial response delay")
	flag.IntVar(&failEvery, "fail-every", 0, "fail every Nth request (0 disables)")
	flag.IntVar(&failCode, "fail-code", http.StatusInternalServerError, "status code for injected failures")
	flag.BoolVar(&noTarget, "no-targeting", false, "omit the targeting object from responses")
	flag.Parse()

	logger, err := observability.InitLoggerWithLevel(zap.DebugLevel, "owmockserver")
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	r := mux.NewRouter()
	r.HandleFunc("/video/json", handleAd(logger)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	logger.Info("mock OpenWrap server listening",
		zap.String("addr", addr),
		zap.Duration("latency", latency),
		zap.Int("fail_every", failEvery))

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func handleAd(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := requestCount.Add(1)

		logger.Debug("ad request received",
			zap.String("pub_id", r.URL.Query().Get("app.pub.id")),
			zap.String("profile_id", r.URL.Query().Get("req.ext.wrapper.profileid")),
			zap.String("ad_unit", r.URL.Query().Get("imp.tagid")),
			zap.String("size", r.URL.Query().Get("imp.vid.sz")))

		if latency > 0 {
			time.Sleep(latency)
		}

		if failEvery > 0 && n%uint64(failEvery) == 0 {
			logger.Debug("injecting failure", zap.Int("code", failCode))
			http.Error(w, "injected failure", failCode)
			return
		}

		body := map[string]interface{}{
			"id": strconv.FormatUint(n, 10),
		}
		if !noTarget {
			body["targeting"] = map[string]string{
				"pwtbst":    "1",
				"pwtcid":    "cd2bb102-7623-443d-9d10-b56e5e2a0a07",
				"pwtcpath":  "/cache",
				"pwtcurl":   "https://ow.pubmatic.com",
				"pwtdur":    "15",
				"pwtecp":    "2.5",
				"pwtpid":    "pubmatic",
				"pwtplt":    "video",
				"pwtprofid": r.URL.Query().Get("req.ext.wrapper.profileid"),
				"pwtpubid":  r.URL.Query().Get("app.pub.id"),
				"pwtsz":     r.URL.Query().Get("imp.vid.sz"),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}
