/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package discovery announces scrawl servers on the local network over
// mDNS and finds them again.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_scrawl._tcp"

// Server is a discovered scrawl instance.
type Server struct {
	Name string
	Addr string
	Info []string
}

// Advertise announces a server listening on port. The returned server
// must be shut down to withdraw the announcement.
func Advertise(port int, info ...string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	return server, nil
}

// Browse queries the network for up to timeout and returns every server
// that answered with an IPv4 address and port.
func Browse(ctx context.Context, timeout time.Duration) ([]Server, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan []Server, 1)

	go func() {
		var out []Server
		seen := make(map[string]bool)

		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}

			addr := net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port))
			if seen[addr] {
				continue
			}
			seen[addr] = true

			out = append(out, Server{Name: e.Host, Addr: addr, Info: e.InfoFields})
		}

		found <- out
	}()

	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	params.Logger = log.New(io.Discard, "", 0)

	err := mdns.Query(params)
	close(entries)

	servers := <-found
	if err != nil {
		return servers, fmt.Errorf("mDNS query failed: %w", err)
	}

	return servers, nil
}
