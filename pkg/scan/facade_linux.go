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

//go:build linux

package scan

import (
	"encoding/binary"
	"net"
	"time"
	"unsafe"

	"golang.org/x/net/bpf"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"
)

// rawSender transmits a single hand-built segment to dst. The IPv4 and
// IPv6 implementations differ in what they have to supply themselves
// versus leave to the kernel, so each gets its own type rather than one
// socket-family-switching function.
type rawSender interface {
	sendTo(dst net.IP, buf []byte) error
	Close() error
}

// v4Sender wraps an IP_HDRINCL raw connection: buf is the complete
// IP+TCP buffer built by buildSYNv4, which this unpacks back into an
// ipv4.Header so golang.org/x/net/ipv4's RawConn can write it — the same
// net.ListenPacket("ip4:tcp", ...) + ipv4.NewRawConn setup the teacher's
// own (never-finished) SYNScanner used, now actually exercised for send.
type v4Sender struct {
	conn *ipv4.RawConn
}

func (s *v4Sender) sendTo(dst net.IP, buf []byte) error {
	h := &ipv4.Header{
		Version:  4,
		Len:      ipv4HeaderLen,
		TOS:      int(buf[1]),
		TotalLen: len(buf),
		ID:       int(binary.BigEndian.Uint16(buf[4:6])),
		TTL:      int(buf[8]),
		Protocol: int(buf[9]),
		Checksum: int(binary.BigEndian.Uint16(buf[10:12])),
		Src:      net.IP(buf[12:16]),
		Dst:      dst,
	}

	if err := s.conn.WriteTo(h, buf[ipv4HeaderLen:], nil); err != nil {
		return ErrSendFailed
	}

	return nil
}

func (s *v4Sender) Close() error {
	return s.conn.Close()
}

// v6Sender wraps a raw IPv6 connection with IPV6_CHECKSUM installed via
// golang.org/x/net/ipv6's PacketConn.SetChecksum, which is the idiomatic
// equivalent of the manual IPPROTO_IPV6/IPV6_CHECKSUM sockopt call: the
// kernel prepends the IPv6 header and fills in the TCP checksum at the
// given offset, since we never have the real source address on hand
// until the kernel picks a route.
type v6Sender struct {
	conn *ipv6.PacketConn
}

// tcpChecksumFieldOffset is the TCP header's checksum field offset, passed
// to SetChecksum so the kernel knows where to patch in its own checksum.
const tcpChecksumFieldOffset = 16

func (s *v6Sender) sendTo(dst net.IP, buf []byte) error {
	if _, err := s.conn.WriteTo(buf, nil, &net.IPAddr{IP: dst}); err != nil {
		return ErrSendFailed
	}

	return nil
}

func (s *v6Sender) Close() error {
	return s.conn.Close()
}

// openRawSender opens the send-side raw socket for the given address
// family. Grounded on the original source's rawsocket(): IP_HDRINCL for
// v4, IPV6_CHECKSUM for v6.
func openRawSender(v6 bool) (rawSender, error) {
	if !v6 {
		conn, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
		if err != nil {
			return nil, ErrRawSocket
		}

		rawConn, err := ipv4.NewRawConn(conn)
		if err != nil {
			conn.Close()
			return nil, ErrRawSocket
		}

		return &v4Sender{conn: rawConn}, nil
	}

	conn, err := net.ListenPacket("ip6:tcp", "::")
	if err != nil {
		return nil, ErrRawSocket
	}

	pc := ipv6.NewPacketConn(conn)

	if err := pc.SetChecksum(true, tcpChecksumFieldOffset); err != nil {
		conn.Close()
		return nil, ErrRawSocket
	}

	return &v6Sender{conn: pc}, nil
}

// openCapture opens an AF_PACKET socket bound to iface, with a classic
// BPF filter attached so the kernel only delivers TCP segments from
// srcIP addressed to our magicPort. Grounded on the original source's
// openbpf(), which compiles the same filter string via libpcap's
// BIOCSETF; this implementation uses SO_ATTACH_FILTER directly since
// there is no cgo dependency on libpcap here.
func openCapture(iface net.Interface, srcIP net.IP, magicPort uint16) (int, error) {
	prog, err := buildIPv4Filter(srcIP, magicPort)
	if err != nil {
		return -1, err
	}

	return openCaptureFiltered(iface, unix.ETH_P_IP, prog)
}

// openCaptureV6 is openCapture's IPv6 counterpart; see buildIPv6Filter for
// why it does not also match on the source address.
func openCaptureV6(iface net.Interface, magicPort uint16) (int, error) {
	prog, err := buildIPv6Filter(magicPort)
	if err != nil {
		return -1, err
	}

	return openCaptureFiltered(iface, unix.ETH_P_IPV6, prog)
}

// openCaptureFiltered opens an AF_PACKET socket bound to iface for
// ethProto frames with prog attached as a classic BPF filter.
func openCaptureFiltered(iface net.Interface, ethProto int, prog []bpf.RawInstruction) (int, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(ethProto)))
	if err != nil {
		return -1, ErrCapture
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(ethProto),
		Ifindex:  iface.Index,
	}

	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return -1, ErrCapture
	}

	if err := attachFilter(fd, prog); err != nil {
		unix.Close(fd)
		return -1, ErrCapture
	}

	return fd, nil
}

// attachFilter installs prog on fd via SO_ATTACH_FILTER.
func attachFilter(fd int, prog []bpf.RawInstruction) error {
	filter := make([]unix.SockFilter, len(prog))
	for i, ins := range prog {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}

	fprog := unix.SockFprog{
		Len:    uint16(len(filter)), //nolint:gosec // BPF programs are always small
		Filter: &filter[0],
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_SETSOCKOPT,
		uintptr(fd),
		uintptr(unix.SOL_SOCKET),
		uintptr(unix.SO_ATTACH_FILTER),
		uintptr(unsafe.Pointer(&fprog)),
		unsafe.Sizeof(fprog),
		0,
	)
	if errno != 0 {
		return errno
	}

	return nil
}

// bpfNext blocks on fd for up to deadline and returns the next captured
// frame, or ok=false on timeout.
func bpfNext(fd int, deadline time.Duration) (frame []byte, ok bool, err error) {
	tv := unix.NsecToTimeval(deadline.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return nil, false, err
	}

	buf := make([]byte, 65536)

	n, _, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, false, nil
		}

		return nil, false, err
	}

	return buf[:n], true, nil
}

// htons converts a host-order uint16 to network order, matching how
// AF_PACKET protocol values and SockaddrLinklayer.Protocol are expected.
func htons(v int) uint16 {
	return uint16(v&0xFF)<<8 | uint16(v&0xFF00)>>8 //nolint:gosec // v is always a small well-known EtherType constant
}
