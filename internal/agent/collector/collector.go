// Package collector gathers the host's interface addresses for AddrResponse.
package collector

import (
	"fmt"
	"net"

	"hostexposer/internal/agent/config"
	"hostexposer/internal/types"
	"hostexposer/internal/utils"

	"go.uber.org/zap"
)

// Interface is one network interface with its assigned addresses
type Interface struct {
	Name     string
	Loopback bool
	Addrs    []net.IP
}

// Lister enumerates the host interfaces
type Lister func() ([]Interface, error)

// SystemInterfaces lists the interfaces of the running host
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get interfaces: %w", err)
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("failed to get addresses of %s: %w", iface.Name, err)
		}

		entry := Interface{
			Name:     iface.Name,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		for _, addr := range addrs {
			switch a := addr.(type) {
			case *net.IPNet:
				entry.Addrs = append(entry.Addrs, a.IP)
			case *net.IPAddr:
				entry.Addrs = append(entry.Addrs, a.IP)
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// Collector produces the adapter list reported to the server
type Collector struct {
	config *config.CollectorConfig
	list   Lister
	logger *zap.Logger
}

// New creates a collector reading the system interfaces
func New(cfg *config.CollectorConfig, logger *zap.Logger) *Collector {
	return NewWithLister(cfg, SystemInterfaces, logger)
}

// NewWithLister creates a collector over a custom interface source
func NewWithLister(cfg *config.CollectorConfig, list Lister, logger *zap.Logger) *Collector {
	return &Collector{
		config: cfg,
		list:   list,
		logger: logger,
	}
}

// Collect lists the interfaces and groups their addresses
func (c *Collector) Collect() ([]types.AdapterAddress, error) {
	ifaces, err := c.list()
	if err != nil {
		return nil, err
	}

	adapters := Group(c.filter(ifaces))
	c.logger.Debug("Collected adapter addresses", zap.Int("adapters", len(adapters)))
	return adapters, nil
}

func (c *Collector) filter(ifaces []Interface) []Interface {
	kept := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		switch {
		case iface.Loopback && !c.config.IncludeLoopback:
		case !c.config.IncludeVirtual && utils.IsVirtualInterface(iface.Name):
		case utils.MatchesAny(iface.Name, c.config.ExcludePatterns):
		default:
			kept = append(kept, iface)
		}
	}
	return kept
}

// Group folds interfaces into one AdapterAddress per name, in first-seen
// order. When a name carries several addresses of a family the last one wins.
// Interfaces without any address are omitted.
func Group(ifaces []Interface) []types.AdapterAddress {
	index := make(map[string]int)
	adapters := make([]types.AdapterAddress, 0, len(ifaces))

	for _, iface := range ifaces {
		for _, ip := range iface.Addrs {
			if ip == nil {
				continue
			}

			i, ok := index[iface.Name]
			if !ok {
				i = len(adapters)
				index[iface.Name] = i
				adapters = append(adapters, types.AdapterAddress{Name: iface.Name})
			}

			if v4 := ip.To4(); v4 != nil {
				adapters[i].V4 = v4.String()
			} else {
				adapters[i].V6 = ip.String()
			}
		}
	}

	return adapters
}
