package listen

import (
	"context"
	"net"
	"net/netip"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is the logger for tests.
var testLogger = slogutil.NewDiscardLogger()

// newTestConfig returns a config listening on an ephemeral port with every
// transport and family enabled.
func newTestConfig() (conf *Config) {
	return &Config{
		Logger:               testLogger,
		TCPAcceptConcurrency: 10,
		BufferSize:           512,
		Port:                 0,
		UDP:                  true,
		TCP:                  true,
		IPv4:                 true,
		IPv6:                 true,
	}
}

// kinds returns the kinds of the entries of set in insertion order.
func kinds(set *PortSet) (ks []PortKind) {
	for _, p := range set.ports {
		ks = append(ks, p.Kind)
	}

	return ks
}

func TestOpenConfiguredPorts_familiesDisabled(t *testing.T) {
	conf := newTestConfig()
	conf.IPv4 = false
	conf.IPv6 = false

	set, err := OpenConfiguredPorts(context.Background(), conf)
	require.NoError(t, err)
	require.NotNil(t, set)

	assert.Zero(t, set.Len())
}

func TestOpenConfiguredPorts_defaultLoopback(t *testing.T) {
	set, err := OpenConfiguredPorts(context.Background(), newTestConfig())
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	// IPv6 strictly before IPv4, UDP before TCP per interface.
	require.Equal(t, []PortKind{KindUDP, KindTCP, KindUDP, KindTCP}, kinds(set))

	udpAddr := testutil.RequireTypeAssert[*net.UDPAddr](t, set.ports[0].LocalAddr())
	assert.True(t, udpAddr.IP.Equal(net.IPv6loopback))

	tcpAddr := testutil.RequireTypeAssert[*net.TCPAddr](t, set.ports[3].LocalAddr())
	assert.True(t, tcpAddr.IP.Equal(net.IPv4(127, 0, 0, 1)))
}

func TestOpenConfiguredPorts_automatic(t *testing.T) {
	conf := newTestConfig()
	conf.TCP = false
	conf.InterfaceAutomatic = true

	set, err := OpenConfiguredPorts(context.Background(), conf)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	require.Equal(t, []PortKind{KindUDPAncillary, KindUDPAncillary}, kinds(set))

	udpAddr := testutil.RequireTypeAssert[*net.UDPAddr](t, set.ports[0].LocalAddr())
	assert.True(t, udpAddr.IP.IsUnspecified())
}

func TestOpenConfiguredPorts_automaticDowngrade(t *testing.T) {
	conf := newTestConfig()
	conf.TCP = false
	conf.IPv6 = false
	conf.InterfaceAutomatic = true

	set, err := OpenConfiguredPorts(context.Background(), conf)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	// Single-family configurations must fall back to plain provisioning on
	// the loopback default.
	require.Equal(t, []PortKind{KindUDP}, kinds(set))

	udpAddr := testutil.RequireTypeAssert[*net.UDPAddr](t, set.ports[0].LocalAddr())
	assert.True(t, udpAddr.IP.IsLoopback())
}

func TestOpenConfiguredPorts_explicitInterfaces(t *testing.T) {
	conf := newTestConfig()
	conf.Interfaces = []string{"127.0.0.1", "::1"}

	set, err := OpenConfiguredPorts(context.Background(), conf)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	assert.Equal(t, []PortKind{KindUDP, KindTCP, KindUDP, KindTCP}, kinds(set))
}

func TestOpenConfiguredPorts_explicitFamilySkip(t *testing.T) {
	conf := newTestConfig()
	conf.Interfaces = []string{"127.0.0.1", "::1"}
	conf.IPv6 = false

	set, err := OpenConfiguredPorts(context.Background(), conf)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	require.Equal(t, []PortKind{KindUDP, KindTCP}, kinds(set))

	udpAddr := testutil.RequireTypeAssert[*net.UDPAddr](t, set.ports[0].LocalAddr())
	assert.True(t, udpAddr.IP.Equal(net.IPv4(127, 0, 0, 1)))
}

func TestOpenConfiguredPorts_badInterface(t *testing.T) {
	conf := newTestConfig()
	conf.Interfaces = []string{"not-an-address"}

	set, err := OpenConfiguredPorts(context.Background(), conf)
	assert.Nil(t, set)
	assert.ErrorContains(t, err, `bad interface address "not-an-address"`)
}

func TestOpenConfiguredPorts_udpDisabled(t *testing.T) {
	conf := newTestConfig()
	conf.UDP = false

	set, err := OpenConfiguredPorts(context.Background(), conf)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	assert.Equal(t, []PortKind{KindTCP, KindTCP}, kinds(set))
}

func TestOpenConfiguredPorts_tcpDisabledByConcurrency(t *testing.T) {
	conf := newTestConfig()
	conf.TCPAcceptConcurrency = 0

	set, err := OpenConfiguredPorts(context.Background(), conf)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	assert.Equal(t, []PortKind{KindUDP, KindUDP}, kinds(set))
}

func TestPortSet_freeAll(t *testing.T) {
	set, err := OpenConfiguredPorts(context.Background(), newTestConfig())
	require.NoError(t, err)
	require.Positive(t, set.Len())

	conn := set.ports[0].UDP
	require.NoError(t, set.FreeAll())

	_, err = conn.WriteToUDPAddrPort([]byte("probe"), netip.MustParseAddrPort("[::1]:1"))
	assert.ErrorIs(t, err, net.ErrClosed)

	// Repeated and partially consumed teardown must be safe.
	assert.NoError(t, set.FreeAll())
	assert.Zero(t, set.Len())
}
