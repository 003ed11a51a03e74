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
	"net"
)

// route describes the local side of the path to a target: the source
// address the kernel would pick, and the interface that address lives on
// (needed to open an AF_PACKET capture socket bound to the right link).
type route struct {
	localIP net.IP
	iface   net.Interface
}

// discoverRoute finds the local interface and source address the kernel
// would use to reach dst, by dialing a UDP "connection" (which never
// sends a packet) and reading back the address the kernel bound.
// Grounded on the routing-lookup trick used throughout the example pack's
// scanners: there is no portable way to ask the kernel "what route would
// you use" other than asking it to pick one.
func discoverRoute(dst net.IP) (route, error) {
	network := "udp4"
	if dst.To4() == nil {
		network = "udp6"
	}

	conn, err := net.Dial(network, net.JoinHostPort(dst.String(), "80"))
	if err != nil {
		return route{}, ErrNoSuitableInterface
	}
	defer conn.Close()

	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return route{}, ErrNoSuitableInterface
	}

	localIP := udpAddr.IP

	iface, err := interfaceForIP(localIP)
	if err != nil {
		return route{}, err
	}

	return route{localIP: localIP, iface: iface}, nil
}

// routeViaInterface builds a route from a named interface instead of
// letting the kernel pick one, honoring SYNScannerOptions.Interface. It
// picks the first address on that interface matching dst's family.
func routeViaInterface(name string, v6 bool) (route, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return route{}, ErrInterfaceNotFound
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return route{}, ErrInterfaceNotFound
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		isV4 := ipNet.IP.To4() != nil
		if isV4 == v6 {
			continue
		}

		return route{localIP: ipNet.IP, iface: *iface}, nil
	}

	if v6 {
		return route{}, ErrInterfaceNotFound
	}

	return route{}, ErrInterfaceNoIPv4
}

// interfaceForIP finds the network interface that owns ip.
func interfaceForIP(ip net.IP) (net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.Interface{}, ErrInterfaceNotFound
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}

			if ipNet.IP.Equal(ip) {
				return iface, nil
			}
		}
	}

	return net.Interface{}, ErrInterfaceNotFound
}
