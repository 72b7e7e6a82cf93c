package collector

import (
	"errors"
	"net"
	"testing"

	"hostexposer/internal/agent/config"
	"hostexposer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func ips(addrs ...string) []net.IP {
	out := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, net.ParseIP(a))
	}
	return out
}

func TestGroup(t *testing.T) {
	got := Group([]Interface{
		{Name: "eth0", Addrs: ips("10.0.0.2", "fe80::1")},
		{Name: "wlan0", Addrs: ips("192.168.1.5")},
		{Name: "eth0", Addrs: ips("10.0.0.3")},
		{Name: "down0"},
		{Name: "v6only", Addrs: ips("2001:db8::1", "2001:db8::2")},
	})

	assert.Equal(t, []types.AdapterAddress{
		{Name: "eth0", V4: "10.0.0.3", V6: "fe80::1"},
		{Name: "wlan0", V4: "192.168.1.5"},
		{Name: "v6only", V6: "2001:db8::2"},
	}, got)
}

func TestGroupMappedIPv4(t *testing.T) {
	got := Group([]Interface{{Name: "eth0", Addrs: []net.IP{net.IPv4(10, 1, 2, 3)}}})
	require.Len(t, got, 1)
	assert.Equal(t, "10.1.2.3", got[0].V4)
	assert.Empty(t, got[0].V6)
}

func TestCollectFilters(t *testing.T) {
	list := func() ([]Interface, error) {
		return []Interface{
			{Name: "lo", Loopback: true, Addrs: ips("127.0.0.1", "::1")},
			{Name: "eth0", Addrs: ips("10.0.0.2")},
			{Name: "docker0", Addrs: ips("172.17.0.1")},
			{Name: "wlan0", Addrs: ips("192.168.1.5")},
		}, nil
	}

	tests := []struct {
		name string
		cfg  config.CollectorConfig
		want []string
	}{
		{"everything", config.CollectorConfig{IncludeLoopback: true, IncludeVirtual: true}, []string{"lo", "eth0", "docker0", "wlan0"}},
		{"no loopback", config.CollectorConfig{IncludeVirtual: true}, []string{"eth0", "docker0", "wlan0"}},
		{"no virtual", config.CollectorConfig{IncludeLoopback: true}, []string{"lo", "eth0", "wlan0"}},
		{"excluded", config.CollectorConfig{IncludeVirtual: true, ExcludePatterns: []string{"wl*", "["}}, []string{"eth0", "docker0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithLister(&tt.cfg, list, zaptest.NewLogger(t))
			adapters, err := c.Collect()
			require.NoError(t, err)

			names := make([]string, 0, len(adapters))
			for _, a := range adapters {
				names = append(names, a.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCollectError(t *testing.T) {
	c := NewWithLister(&config.CollectorConfig{}, func() ([]Interface, error) {
		return nil, errors.New("boom")
	}, zaptest.NewLogger(t))

	_, err := c.Collect()
	assert.EqualError(t, err, "boom")
}

func TestSystemInterfaces(t *testing.T) {
	c := New(&config.CollectorConfig{IncludeLoopback: true, IncludeVirtual: true}, zaptest.NewLogger(t))
	adapters, err := c.Collect()
	require.NoError(t, err)
	for _, a := range adapters {
		assert.NotEmpty(t, a.Name)
		assert.True(t, a.V4 != "" || a.V6 != "")
	}
}
