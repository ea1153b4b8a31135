// Package netdetect finds the host's default network interface and its IPv4 address.
package netdetect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lucas-albers-lz4/ciprep/pkg/cmdexec"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

var (
	// ErrNoDefaultRoute is returned when the routing table has no default route with a device.
	ErrNoDefaultRoute = errors.New("could not find default network interface")
	// ErrNoAddress is returned when the default interface has no IPv4 address.
	ErrNoAddress = errors.New("could not find IPv4 address for interface")
)

var inetPattern = regexp.MustCompile(`inet\s+(\d+\.\d+\.\d+\.\d+)`)

// Interface is the detected default interface.
type Interface struct {
	Name    string
	Address string
}

// Detector queries the routing table with the ip tool.
type Detector struct {
	runner cmdexec.Runner
}

// NewDetector creates a Detector. A nil runner uses cmdexec.ExecRunner.
func NewDetector(runner cmdexec.Runner) *Detector {
	if runner == nil {
		runner = cmdexec.ExecRunner{}
	}
	return &Detector{runner: runner}
}

// Detect returns the interface of the default route and its first IPv4 address.
func (d *Detector) Detect(ctx context.Context) (Interface, error) {
	routes, err := d.runner.Run(ctx, "ip", "route")
	if err != nil {
		return Interface{}, fmt.Errorf("failed to read routing table: %w", err)
	}
	name, err := DefaultInterface(routes.Stdout)
	if err != nil {
		return Interface{}, err
	}

	addrs, err := d.runner.Run(ctx, "ip", "-4", "addr", "show", name)
	if err != nil {
		return Interface{}, fmt.Errorf("failed to read addresses of %s: %w", name, err)
	}
	addr, err := FirstIPv4(addrs.Stdout)
	if err != nil {
		return Interface{}, fmt.Errorf("%w %s", err, name)
	}

	log.Info("Detected network interface", "interface", name, "address", addr)
	return Interface{Name: name, Address: addr}, nil
}

// DefaultInterface returns the device of the first default route in `ip route` output.
func DefaultInterface(routes string) (string, error) {
	for _, line := range strings.Split(routes, "\n") {
		if !strings.Contains(line, "default") {
			continue
		}
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "dev" && i+1 < len(fields) {
				return fields[i+1], nil
			}
		}
	}
	return "", ErrNoDefaultRoute
}

// FirstIPv4 returns the first inet address in `ip -4 addr show` output.
func FirstIPv4(addrs string) (string, error) {
	m := inetPattern.FindStringSubmatch(addrs)
	if m == nil {
		return "", ErrNoAddress
	}
	return m[1], nil
}
