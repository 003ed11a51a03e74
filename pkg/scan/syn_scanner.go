//go:build linux
// +build linux

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

package scan

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/KevAligo/synscan/pkg/logger"
	"github.com/KevAligo/synscan/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// SYNScanner crafts its own IPv4/IPv6 SYN segments on a raw socket and
// classifies replies read back off an AF_PACKET capture socket, rather
// than letting the kernel own a full TCP handshake per port. One host is
// scanned per goroutine; within a single host's scan, sends and reads are
// strictly sequential on that goroutine — there is no per-probe worker
// pool and no batched send path, so pacing is governed entirely by the RTT
// estimator below.
type SYNScanner struct {
	timeout time.Duration
	logger  logger.Logger
	opts    SYNScannerOptions

	magicPorts *PortAllocator

	mu            sync.Mutex
	portTargetMap map[uint16]string        // magic source port -> host currently owning it
	targetIP      map[string]string        // host -> resolved IP string
	results       map[string]models.Result // "host:port" -> most recently observed result

	cancel context.CancelFunc
}

var _ Scanner = (*SYNScanner)(nil)

// NewSYNScanner constructs a SYNScanner. Opening the raw sockets a scan
// needs is deferred to Scan, since the address family depends on each
// target's resolved IP.
func NewSYNScanner(timeout time.Duration, log logger.Logger, opts SYNScannerOptions) (*SYNScanner, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &SYNScanner{
		timeout:       timeout,
		logger:        log,
		opts:          opts,
		magicPorts:    NewPortAllocator(4441, 5640),
		portTargetMap: make(map[uint16]string),
		targetIP:      make(map[string]string),
		results:       make(map[string]models.Result),
	}, nil
}

// Scan groups targets by host and scans each host's port list on its own
// goroutine, streaming Results on the returned channel: one per target of
// a host whose scan got past setup, plus that host's marker Results. A
// host that fails setup (see failHost) contributes no Result at all.
func (s *SYNScanner) Scan(ctx context.Context, targets []models.Target) (<-chan models.Result, error) {
	if len(targets) == 0 {
		ch := make(chan models.Result)
		close(ch)

		return ch, nil
	}

	byHost := make(map[string][]models.Target)

	var order []string

	for _, t := range targets {
		if _, ok := byHost[t.Host]; !ok {
			order = append(order, t.Host)
		}

		byHost[t.Host] = append(byHost[t.Host], t)
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	resultCh := make(chan models.Result, len(targets))

	var wg sync.WaitGroup

	for _, host := range order {
		host := host
		hostTargets := byHost[host]

		wg.Add(1)

		go func() {
			defer wg.Done()

			s.scanHost(scanCtx, host, hostTargets, resultCh)
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return resultCh, nil
}

// Stop cancels any scan in progress.
func (s *SYNScanner) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	return nil
}

const (
	// statusInterval is how many ports are sent between progress markers.
	statusInterval = 100

	// fullScanPortCount is the port-list size at or above which a host's
	// scan is considered to have swept the full port range, matching the
	// original source's num_ports >= 65535 check.
	fullScanPortCount = 65535
)

// scanHost runs the full probe/retry/expire state machine for one host,
// emitting a Result for every target in targets before returning, unless
// setup fails first, in which case it emits nothing. Grounded on the
// original source's scan(): resolve and route once, send every port's SYN
// with a sniff pass after every second send, then interleave resends and
// sniffing with expiry until every outstanding probe is either answered or
// declared dead.
func (s *SYNScanner) scanHost(ctx context.Context, host string, targets []models.Target, resultCh chan<- models.Result) {
	tracer := logger.GetTracer("scan")

	spanCtx, span := tracer.Start(ctx, "scan.host")
	defer span.End()

	log := s.logger.WithComponent("synscan").With().Str("host", host).Logger()

	ip, err := resolveHost(host)
	if err != nil {
		s.failHost(log, err)
		return
	}

	if ip.IsLoopback() {
		s.failHost(log, ErrLoopback)
		return
	}

	v6 := ip.To4() == nil

	var rt route

	if s.opts.Interface != "" {
		rt, err = routeViaInterface(s.opts.Interface, v6)
	} else {
		routeTarget := net.ParseIP(s.opts.routeTarget(host))
		if routeTarget == nil {
			routeTarget = ip
		}

		rt, err = discoverRoute(routeTarget)
	}

	if err != nil {
		s.failHost(log, err)
		return
	}

	sender, err := openRawSender(v6)
	if err != nil {
		s.failHost(log, err)
		return
	}
	defer sender.Close()

	magicPort, err := s.magicPorts.Reserve(spanCtx)
	if err != nil {
		s.failHost(log, err)
		return
	}
	defer s.magicPorts.Release(magicPort)

	var captureFD int
	if v6 {
		captureFD, err = openCaptureV6(rt.iface, magicPort)
	} else {
		captureFD, err = openCapture(rt.iface, ip, magicPort)
	}

	if err != nil {
		s.failHost(log, err)
		return
	}
	defer unix.Close(captureFD)

	s.mu.Lock()
	s.portTargetMap[magicPort] = host
	s.targetIP[host] = ip.String()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.portTargetMap, magicPort)
		delete(s.targetIP, host)
		s.mu.Unlock()
	}()

	send := func(port uint16, sentAt uint32) error {
		return s.sendSYN(sender, ip, rt.localIP, v6, magicPort, port, sentAt)
	}

	recv := func(ctx context.Context, deadline time.Duration) (uint16, uint32, bool) {
		return s.sniffOne(ctx, captureFD, deadline)
	}

	rtt := initialRTTBudget
	if s.opts.WarmupRTT {
		rtt = estimateRTT(spanCtx, send, recv)
		log.Debug().Uint32("rtt", rtt).Msg("rtt warmup complete")
	}

	maxRetries := numRetries
	if v6 {
		maxRetries = 0

		log.Debug().Msg("ipv6 target: no retry phase, matching the original tool's asymmetry")
	}

	table := newProbeTable()

	portOf := make(map[uint16]models.Target, len(targets))
	for _, t := range targets {
		portOf[uint16(t.Port)] = t //nolint:gosec // scan ports are always <= 65535
	}

	ports := make([]uint16, len(targets))
	for i, t := range targets {
		ports[i] = uint16(t.Port) //nolint:gosec // see above
	}

	sent := 0

	sendAndTrack := func(port uint16) {
		sentAt := now()

		sent++
		if sent%statusInterval == 0 {
			s.emitMarker(resultCh, host, map[string]interface{}{
				"current_index": sent,
				"total_ports":   len(ports),
			})
		}

		if err := send(port, sentAt); err != nil {
			if t, found := portOf[port]; found {
				s.emit(resultCh, t, false, 0, err)
			}

			return
		}

		table.insertOrBump(port, sentAt)
	}

	// Pairwise send/sniff interleave, grounded on the original source's main
	// scan loop: every other port's send is immediately followed by one
	// sniff pass, so the send cadence never races ahead of the reply
	// cadence by more than a single extra SYN.
	for i := 0; i < len(ports); i += 2 {
		sendAndTrack(ports[i])

		if i+1 >= len(ports) {
			continue
		}

		sendAndTrack(ports[i+1])

		if replyPort, sentAt, ok := s.sniffOne(spanCtx, captureFD, sniffDeadline(rtt)); ok {
			rtt = s.recordReply(resultCh, table, portOf, rtt, replyPort, sentAt)
		}
	}

	reportDropped := func(droppedPorts []uint16) {
		for _, port := range droppedPorts {
			if t, found := portOf[port]; found {
				s.emit(resultCh, t, false, 0, nil)
			}
		}
	}

	// resendRetry sends retry (no sniff) and re-arms it in the table, or
	// drops it on a transmit failure. A no-op if haveRetry is false —
	// grounded on the original source's sendpacket() only calling
	// add_packet/sendto when dport != 0, leaving "retry == none" a bare
	// no-send.
	resendRetry := func(retry uint16, haveRetry bool) {
		if !haveRetry {
			return
		}

		sentAt := now()
		if err := send(retry, sentAt); err != nil {
			table.remove(retry)

			if t, found := portOf[retry]; found {
				s.emit(resultCh, t, false, 0, err)
			}

			return
		}

		table.insertOrBump(retry, sentAt)
	}

	// Retry phase, grounded on the original source's post-send-pass loop:
	// each round re-sweeps the table for dead probes (expire), bursts up to
	// two bare resends against whatever it finds, then resends the last
	// candidate once more and sniffs. The trailing resend is not guarded by
	// its own check: if that last expire came back empty, resendRetry sends
	// nothing, but the round's sniff still runs.
	for table.len() > 0 {
		if spanCtx.Err() != nil {
			break
		}

		retry, haveRetry, dropped := table.expire(rtt, maxRetries)
		reportDropped(dropped)

		for k := 0; k < 2 && haveRetry; k++ {
			resendRetry(retry, haveRetry)

			retry, haveRetry, dropped = table.expire(rtt, maxRetries)
			reportDropped(dropped)
		}

		resendRetry(retry, haveRetry)

		if replyPort, sentAt, ok := s.sniffOne(spanCtx, captureFD, sniffDeadline(rtt)); ok {
			rtt = s.recordReply(resultCh, table, portOf, rtt, replyPort, sentAt)
		}
	}

	for _, port := range table.ports() {
		if t, found := portOf[port]; found {
			s.emit(resultCh, t, false, 0, ErrScanTimedOut)
		}
	}

	s.emitMarker(resultCh, host, map[string]interface{}{"Host/scanned": true})
	s.emitMarker(resultCh, host, map[string]interface{}{"Host/scanners/synscan": true})

	if len(targets) >= fullScanPortCount {
		s.emitMarker(resultCh, host, map[string]interface{}{"Host/full_scan": true})
	}
}

// sendSYN builds and transmits a single SYN for dport, using the IPv4 or
// IPv6 packet builder depending on v6.
func (s *SYNScanner) sendSYN(sender rawSender, dst, src net.IP, v6 bool, sport, dport uint16, sentAt uint32) error {
	if v6 {
		return sender.sendTo(dst, buildSYNv6(sport, dport, sentAt, synFlag))
	}

	return sender.sendTo(dst, buildSYNv4(src, dst, sport, dport, sentAt, synFlag))
}

// sniffDeadline computes the bpf_next budget for a single sniff pass: an
// eighth of the current RTT estimate, clamped to at most one second, so
// the send cadence keeps exceeding the reply cadence. Grounded on the
// original source's `rtt_tv / 8` sniff-pass deadline.
func sniffDeadline(rtt uint32) time.Duration {
	d := rttDuration(rtt) / 8
	if d > time.Second {
		return time.Second
	}

	return d
}

// recordReply resolves a matched reply against table: it raises rtt to the
// sample when the sample exceeds the current rtt (which starts out as the
// initial budget), removes the probe, and emits its Result. Returns the (possibly updated) rtt for the caller to carry
// forward; a reply for a port no longer in the table (already resolved or
// expired) is ignored.
func (s *SYNScanner) recordReply(
	resultCh chan<- models.Result, table *probeTable, portOf map[uint16]models.Target,
	rtt uint32, replyPort uint16, sentAt uint32,
) uint32 {
	if _, found := table.find(replyPort); !found {
		return rtt
	}

	sample := elapsed(sentAt)
	if byteSwap32(sample) > byteSwap32(rtt) {
		rtt = sample
	}

	table.remove(replyPort)

	if t, found := portOf[replyPort]; found {
		s.emit(resultCh, t, true, rttDuration(sample), nil)
	}

	return rtt
}

// sniffOne reads one captured frame and classifies it via
// processEthernetFrame, reporting a match only for SYN/ACKs. An RST is not
// recorded in the shared results snapshot (processEthernetFrame only logs
// it) and is not treated as a resolved probe here, so its port stays in
// the probe table.
func (s *SYNScanner) sniffOne(ctx context.Context, fd int, deadline time.Duration) (port uint16, sentAt uint32, ok bool) {
	if ctx.Err() != nil {
		return 0, 0, false
	}

	frame, gotFrame, err := bpfNext(fd, deadline)
	if err != nil || !gotFrame {
		return 0, 0, false
	}

	result, classified := s.processEthernetFrame(frame)
	if !classified || !result.isSYNACK {
		return 0, 0, false
	}

	return result.port, result.sentAt, true
}

// frameResult is what processEthernetFrame extracts from one captured
// frame once it has been matched to a host we are currently scanning.
type frameResult struct {
	host     string
	port     uint16
	sentAt   uint32
	isSYNACK bool
	isRST    bool
}

// processEthernetFrame strips the datalink header, parses the IPv4 or
// IPv6 TCP segment inside, and — if its destination port matches a magic
// port this scanner currently owns — classifies it and opportunistically
// updates the shared results snapshot. It returns classified=false for
// anything that is not a reply to one of our own probes (wrong protocol,
// too short, unrecognized magic port).
func (s *SYNScanner) processEthernetFrame(frame []byte) (frameResult, bool) {
	hdrLen, etherType, err := datalinkHeaderLen(frame)
	if err != nil {
		return frameResult{}, false
	}

	ip := frame[hdrLen:]

	var tcp []byte

	switch etherType {
	case etherTypeIPv4:
		off, err := tcpOffsetV4(ip)
		if err != nil {
			return frameResult{}, false
		}

		tcp = ip[off : off+tcpHeaderLen]
	case etherTypeIPv6:
		off, err := tcpOffsetV6(ip)
		if err != nil {
			return frameResult{}, false
		}

		tcp = ip[off : off+tcpHeaderLen]
	default:
		return frameResult{}, false
	}

	magicPort := destPortOf(tcp)
	scannedPort := sourcePortOf(tcp)

	s.mu.Lock()
	host, owned := s.portTargetMap[magicPort]
	s.mu.Unlock()

	if !owned {
		return frameResult{}, false
	}

	res := frameResult{
		host:     host,
		port:     scannedPort,
		sentAt:   ackSentAt(tcp),
		isSYNACK: isSYNACK(tcp),
		isRST:    isRST(tcp),
	}

	if res.isSYNACK {
		s.mu.Lock()
		key := host + ":" + strconv.Itoa(int(scannedPort))
		s.results[key] = models.Result{
			Target:    models.Target{Host: host, Port: int(scannedPort), Mode: models.ModeTCP},
			Available: true,
			LastSeen:  time.Now(),
			RespTime:  rttDuration(elapsed(res.sentAt)),
		}
		s.mu.Unlock()
	} else if res.isRST && !s.opts.SuppressRSTReply {
		componentLogger := s.logger.WithComponent("synscan")
		componentLogger.Warn().
			Str("host", host).
			Uint16("port", scannedPort).
			Msg("target answered a probe with RST; set SuppressRSTReply to silence this warning")
	}

	return res, true
}

// emit sends a single Result for target on resultCh.
func (s *SYNScanner) emit(resultCh chan<- models.Result, target models.Target, available bool, rtt time.Duration, err error) {
	ts := time.Now()

	resultCh <- models.Result{
		Target:    target,
		Available: available,
		FirstSeen: ts,
		LastSeen:  ts,
		RespTime:  rtt,
		Error:     err,
	}
}

// failHost reports a fatal per-host setup failure (resolution, routing, or
// socket/capture setup) through the component logger only. Spec §7 treats
// these as fatal-without-notifications: the driver's own return value is
// the only user-visible failure signal, so nothing is pushed onto the
// result sink for a host that never got to probe a single port — matching
// the silent-skip scenario §8 specifies for a loopback target.
func (s *SYNScanner) failHost(log zerolog.Logger, err error) {
	log.Error().Err(err).Msg("host scan aborted before any probe was sent")
}

// emitMarker reports a boundary event against host through the same sink
// channel open ports are reported on, carrying the event in Metadata rather
// than as an open-port Result. Grounded on the original source's
// plug_set_key calls in plugin_run_synscan, which report scan progress and
// completion through the same key/value store used for findings.
func (s *SYNScanner) emitMarker(resultCh chan<- models.Result, host string, metadata map[string]interface{}) {
	ts := time.Now()

	resultCh <- models.Result{
		Target:    models.Target{Host: host, Mode: models.ModeTCP, Metadata: metadata},
		FirstSeen: ts,
		LastSeen:  ts,
		Metadata:  metadata,
	}
}

// resolveHost resolves host to a single IP, preferring an IPv4 address
// when both families are available.
func resolveHost(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return nil, ErrNoSuitableInterface
	}

	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}

	return ips[0], nil
}
