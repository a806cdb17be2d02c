package inbound

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEasy() *EasyInboundConfigBuilder {
	return NewEasyInboundConfigBuilder(EasyOptions{Clock: fixedClock}).
		WithUserID(1).
		WithUp("100GB").
		WithDown("100GB").
		WithTotal(0).
		WithRemark("easy one").
		WithEnable(true).
		WithExpiryTime("1MO").
		WithListen("").
		WithPort(8443).
		WithProtocol(ProtocolVMess).
		WithTag("inbound-8443").
		WithClientID(uuid.Nil).
		WithNetwork(NetworkWS).
		WithSecurity("TLS").
		WithServerName("panel.example.com").
		WithWsPath("/abcdef").
		WithSniffing(true)
}

func TestEasyBuilderDerivesSubObjects(t *testing.T) {
	cfg, err := newEasy().Build()
	require.NoError(t, err)

	assert.Equal(t, int64(100)<<30, cfg.Up)
	assert.Equal(t, (fixedNow.Unix()+2629746)*1000, cfg.ExpiryTime)

	settings, err := cfg.DecodeSettings()
	require.NoError(t, err)
	require.Len(t, settings.Clients, 1)
	assert.NotEqual(t, uuid.Nil, settings.Clients[0].ID)

	stream, err := cfg.DecodeStreamSettings()
	require.NoError(t, err)
	assert.Equal(t, NetworkWS, stream.Network)
	assert.Equal(t, "tls", stream.Security)
	assert.Equal(t, "panel.example.com", stream.TLSSettings.ServerName)
	assert.Equal(t, []Certificate{DefaultCertificate()}, stream.TLSSettings.Certificates)
	assert.Equal(t, "/abcdef", stream.WsSettings.Path)

	sniffing, err := cfg.DecodeSniffing()
	require.NoError(t, err)
	assert.True(t, sniffing.Enabled)
	assert.Equal(t, []string{"http", "tls"}, sniffing.DestOverride)
}

func TestEasyBuilderKeepsGivenClientID(t *testing.T) {
	id := uuid.New()
	cfg, err := newEasy().WithClientID(id).Build()
	require.NoError(t, err)
	settings, err := cfg.DecodeSettings()
	require.NoError(t, err)
	assert.Equal(t, id, settings.Clients[0].ID)
}

func TestEasyBuilderMissingFields(t *testing.T) {
	_, err := NewEasyInboundConfigBuilder(EasyOptions{}).
		WithUserID(1).
		WithPort(443).
		Build()
	var incomplete *IncompleteBuilderError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "EasyInboundConfigBuilder", incomplete.Builder)
	assert.Contains(t, incomplete.Missing, "ws_path")
	assert.Contains(t, incomplete.Missing, "tag")
	assert.NotContains(t, incomplete.Missing, "port")
}

func TestEasyBuilderValidation(t *testing.T) {
	_, err := newEasy().WithWsPath("nope").Build()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stream_settings.wsSettings.path", verr.Field)

	_, err = newEasy().WithNetwork("smoke").Build()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stream_settings.network", verr.Field)

	_, err = newEasy().WithServerName("bad host").Build()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stream_settings.tlsSettings.serverName", verr.Field)

	_, err = newEasy().WithDown("lots").Build()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "down", verr.Field)
}

func TestEasyBuilderOptions(t *testing.T) {
	b := NewEasyInboundConfigBuilder(EasyOptions{
		Clock:        fixedClock,
		Certificates: []Certificate{{CertificateFile: "/etc/a.crt", KeyFile: "/etc/a.key"}},
		DestOverride: []string{"quic"},
		WsHeaders:    map[string]string{"Host": "cdn.example.com"},
	})
	cfg, err := b.WithUserID(2).WithUp(0).WithDown(0).WithTotal("1TB").WithRemark("").
		WithEnable(false).WithExpiryTime(0).WithListen("127.0.0.1").WithPort(1).
		WithProtocol(ProtocolTrojan).WithTag("x").WithClientID(uuid.Nil).
		WithNetwork(NetworkTCP).WithSecurity("none").WithServerName("").
		WithWsPath("/").WithSniffing(false).Build()
	require.NoError(t, err)

	stream, err := cfg.DecodeStreamSettings()
	require.NoError(t, err)
	assert.Equal(t, "/etc/a.crt", stream.TLSSettings.Certificates[0].CertificateFile)
	assert.Equal(t, "cdn.example.com", stream.WsSettings.Headers["Host"])

	sniffing, err := cfg.DecodeSniffing()
	require.NoError(t, err)
	assert.Equal(t, []string{"quic"}, sniffing.DestOverride)
	assert.Equal(t, int64(1)<<40, cfg.Total)
}

func TestRandomPath(t *testing.T) {
	p := RandomPath(6)
	assert.Len(t, p, 7)
	assert.True(t, strings.HasPrefix(p, "/"))
	for _, r := range p[1:] {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	}
	assert.Equal(t, "/", RandomPath(0))
}
