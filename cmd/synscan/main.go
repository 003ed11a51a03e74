/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command synscan drives the SYN scanner in pkg/scan against a host or
// CIDR range from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/KevAligo/synscan/pkg/logger"
	"github.com/KevAligo/synscan/pkg/models"
	"github.com/KevAligo/synscan/pkg/scan"
	"github.com/rs/zerolog"
)

// loggerWrapper adapts a zerolog.Logger to the logger.Logger interface the
// scan package expects.
type loggerWrapper struct {
	logger zerolog.Logger
}

func (l *loggerWrapper) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *loggerWrapper) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *loggerWrapper) Info() *zerolog.Event  { return l.logger.Info() }
func (l *loggerWrapper) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *loggerWrapper) Error() *zerolog.Event { return l.logger.Error() }
func (l *loggerWrapper) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *loggerWrapper) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *loggerWrapper) With() zerolog.Context { return l.logger.With() }
func (l *loggerWrapper) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}
func (l *loggerWrapper) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.logger.With().Fields(fields).Logger()
}
func (l *loggerWrapper) SetLevel(level zerolog.Level) { l.logger = l.logger.Level(level) }
func (l *loggerWrapper) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

func main() {
	var (
		targetArg = flag.String("target", "", "host, IP, or CIDR range to scan")
		portsArg  = flag.String("ports", "1-1024", "comma-separated ports and ranges, e.g. 22,80,8000-8100")
		timeout   = flag.Duration("timeout", 3*time.Second, "stored on the scanner; probe expiry follows the measured RTT budget, not this value")
		iface     = flag.String("interface", "", "pin the SYN scan to this network interface")
		logLevel  = flag.String("log-level", "info", "log level: trace, debug, info, warn, error")
		otelAddr  = flag.String("otel-endpoint", "", "OTLP gRPC collector address; enables tracing and OTel log export when set")
	)

	flag.Parse()

	if *targetArg == "" {
		fmt.Fprintln(os.Stderr, "synscan: -target is required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := logger.DefaultConfig()
	cfg.Level = *logLevel

	if *otelAddr != "" {
		cfg.OTel.Enabled = true
		cfg.OTel.Endpoint = *otelAddr
		cfg.OTel.ServiceName = "synscan"
		cfg.OTel.Insecure = true
	}

	if err := logger.Init(*cfg); err != nil {
		fmt.Fprintf(os.Stderr, "synscan: bad log config: %v\n", err)
		os.Exit(2)
	}

	if *otelAddr != "" {
		tp, tracedCtx, rootSpan, err := logger.InitializeTracing(ctx, logger.TracingConfig{
			ServiceName:    "synscan",
			ServiceVersion: "1",
			Debug:          *logLevel == "debug" || *logLevel == "trace",
			OTel:           &cfg.OTel,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "synscan: tracing init: %v\n", err)
			os.Exit(2)
		}

		defer func() {
			rootSpan.End()
			_ = tp.Shutdown(context.Background())
			_ = logger.ShutdownOTEL()
		}()

		ctx = tracedCtx

		if _, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
			ServiceName:    "synscan",
			ServiceVersion: "1",
			OTel:           &cfg.OTel,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "synscan: metrics init: %v\n", err)
			os.Exit(2)
		}
	}

	ports, err := parsePorts(*portsArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synscan: %v\n", err)
		os.Exit(2)
	}

	hosts, err := expandTarget(*targetArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synscan: %v\n", err)
		os.Exit(2)
	}

	targets := make([]models.Target, 0, len(hosts)*len(ports))
	for _, h := range hosts {
		for _, p := range ports {
			targets = append(targets, scan.TargetFromIP(h, models.ModeTCP, p))
		}
	}

	log := &loggerWrapper{logger: logger.GetLogger()}

	scanner, err := scan.NewSYNScanner(*timeout, log, scan.SYNScannerOptions{Interface: *iface})
	if err != nil {
		fmt.Fprintf(os.Stderr, "synscan: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := scanner.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("scanner stop returned an error")
		}
	}()

	results, err := scanner.Scan(ctx, targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synscan: %v\n", err)
		os.Exit(1)
	}

	open := 0

	for r := range results {
		if !r.Available {
			continue
		}

		open++

		fmt.Printf("%-20s open  %6s\n", fmt.Sprintf("%s:%d", r.Target.Host, r.Target.Port), r.RespTime.Round(time.Microsecond))
	}

	log.Info().Int("open", open).Int("probed", len(targets)).Msg("scan complete")
}

func parsePorts(spec string) ([]int, error) {
	var ports []int

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("bad port range %q: %w", part, err)
			}

			end, err := strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("bad port range %q: %w", part, err)
			}

			for p := start; p <= end; p++ {
				ports = append(ports, p)
			}

			continue
		}

		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad port %q: %w", part, err)
		}

		ports = append(ports, p)
	}

	if len(ports) == 0 {
		return nil, scan.ErrNoPortsGiven
	}

	return ports, nil
}

func expandTarget(target string) ([]string, error) {
	if strings.Contains(target, "/") {
		return scan.ExpandCIDR(target)
	}

	return []string{target}, nil
}
