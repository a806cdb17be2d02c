package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiwrpremium/xtls-crud/internal/inbound"
	"github.com/amiwrpremium/xtls-crud/internal/notifier"
	"github.com/amiwrpremium/xtls-crud/internal/repository"
	"github.com/amiwrpremium/xtls-crud/internal/repository/sqlite"
	"github.com/amiwrpremium/xtls-crud/internal/units"
)

const month = 2629746

func newInboundService(t *testing.T) (InboundService, *sqlite.Store, *recordingNotifier) {
	t.Helper()
	store := newTestStore(t)
	notes := &recordingNotifier{}
	svc := NewInboundService(InboundOptions{
		Inbounds: store.Inbounds(),
		Notifier: notes,
		Defaults: InboundDefaults{ServerName: "panel.example.com", DestOverride: []string{"http", "tls"}},
		Now:      testClock,
	})
	return svc, store, notes
}

func ptr[T any](v T) *T { return &v }

func fullInput(port int, tag string) InboundInput {
	return InboundInput{
		UserID:     ptr(int64(1)),
		Up:         "1GB",
		Down:       json.Number("0"),
		Total:      "10GB",
		Remark:     ptr("node one"),
		Enable:     ptr(true),
		ExpiryTime: "1D",
		Listen:     ptr(""),
		Port:       ptr(port),
		Protocol:   ptr("VLESS"),
		Tag:        ptr(tag),
		Settings: &inbound.ClientSetting{
			Clients: []inbound.Client{{ID: uuid.MustParse("6e3a1c1e-7b36-4c57-9c8e-2b0f1f0c2a11")}},
		},
		StreamSettings: &inbound.StreamSettings{
			Network:     inbound.NetworkWS,
			Security:    "tls",
			TLSSettings: inbound.TLSSettings{ServerName: "a.example.com", Certificates: []inbound.Certificate{inbound.DefaultCertificate()}},
			WsSettings:  inbound.WsSettings{Path: "/ws"},
		},
		Sniffing: &inbound.Sniffing{Enabled: true, DestOverride: []string{"http"}},
	}
}

func TestInboundCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInboundService(t)

	view, err := svc.Create(ctx, fullInput(443, "edge"))
	require.NoError(t, err)
	assert.Positive(t, view.ID)
	assert.Equal(t, int64(1)<<30, view.Up)
	assert.Equal(t, int64(10)<<30, view.Total)
	assert.Equal(t, (testNow.Unix()+86400)*1000, view.ExpiryTime)
	assert.Equal(t, inbound.ProtocolVLESS, view.Protocol)
	assert.Equal(t, "/ws", view.StreamSettings.WsSettings.Path)
	assert.Equal(t, []string{"http"}, view.Sniffing.DestOverride)

	got, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Settings, got.Settings)

	byTag, err := svc.GetByTag(ctx, " edge ")
	require.NoError(t, err)
	assert.Equal(t, view.ID, byTag.ID)

	byPort, err := svc.GetByPort(ctx, 443)
	require.NoError(t, err)
	assert.Equal(t, view.ID, byPort.ID)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInboundCreateFromJSONFillsSubObjectDefaults(t *testing.T) {
	body := `{
		"user_id": 1, "up": 0, "down": 0, "total": 0, "remark": "json", "enable": true,
		"expiry_time": 0, "listen": "", "port": 8443, "protocol": "vmess", "tag": "json-edge",
		"settings": {"clients": [{"alterId": 0}], "disableInsecureEncryption": false},
		"stream_settings": {"network": "ws", "security": "tls",
			"tlsSettings": {"serverName": "a.example.com"}, "wsSettings": {"path": "/ws"}},
		"sniffing": {"enabled": true}
	}`
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var input InboundInput
	require.NoError(t, dec.Decode(&input))

	svc, _, _ := newInboundService(t)
	view, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, view.Settings.Clients, 1)
	assert.NotEqual(t, uuid.Nil, view.Settings.Clients[0].ID)
	assert.Equal(t, []inbound.Certificate{inbound.DefaultCertificate()}, view.StreamSettings.TLSSettings.Certificates)
	assert.Equal(t, []string{"http", "tls"}, view.Sniffing.DestOverride)

	got, err := svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Settings.Clients[0].ID, got.Settings.Clients[0].ID)
}

func TestInboundCreateMissingFields(t *testing.T) {
	svc, _, _ := newInboundService(t)
	input := fullInput(443, "edge")
	input.Sniffing = nil
	input.Up = nil

	_, err := svc.Create(context.Background(), input)
	var incomplete *inbound.IncompleteBuilderError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"up", "sniffing"}, incomplete.Missing)
}

func TestInboundCreateRejectsBadUnits(t *testing.T) {
	svc, _, _ := newInboundService(t)
	input := fullInput(443, "edge")
	input.Total = "12XX"

	_, err := svc.Create(context.Background(), input)
	var verr *inbound.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "total", verr.Field)
	assert.ErrorIs(t, err, units.ErrUnknownUnit)
}

func TestInboundConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInboundService(t)
	first, err := svc.Create(ctx, fullInput(443, "edge"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, fullInput(443, "other"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "port", conflict.Field)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, fullInput(8443, "edge"))
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "tag", conflict.Field)

	// 更新自身不算冲突。
	updated, err := svc.Update(ctx, first.ID, fullInput(443, "edge"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)

	second, err := svc.Create(ctx, fullInput(8443, "second"))
	require.NoError(t, err)
	_, err = svc.Update(ctx, second.ID, fullInput(443, "second"))
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "port", conflict.Field)
}

func TestInboundUpdateReplacesRecord(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInboundService(t)
	created, err := svc.Create(ctx, fullInput(443, "edge"))
	require.NoError(t, err)

	input := fullInput(2053, "edge-2")
	input.Remark = ptr("<b>renamed</b>")
	input.Enable = ptr(false)
	updated, err := svc.Update(ctx, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 2053, updated.Port)
	assert.Equal(t, "renamed", updated.Remark)
	assert.False(t, updated.Enable)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, 999, fullInput(1, "x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInboundDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInboundService(t)
	created, err := svc.Create(ctx, fullInput(443, "edge"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestInboundCreateEasyDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInboundService(t)

	view, err := svc.CreateEasy(ctx, EasyInboundInput{Port: ptr(8443)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.UserID)
	assert.Equal(t, int64(100)<<30, view.Up)
	assert.Equal(t, int64(100)<<30, view.Down)
	assert.Zero(t, view.Total)
	assert.True(t, view.Enable)
	assert.Equal(t, (testNow.Unix()+month)*1000, view.ExpiryTime)
	assert.Equal(t, "inbound-8443", view.Tag)
	assert.Equal(t, inbound.ProtocolVMess, view.Protocol)
	assert.Equal(t, inbound.NetworkWS, view.StreamSettings.Network)
	assert.Equal(t, "tls", view.StreamSettings.Security)
	assert.Equal(t, "panel.example.com", view.StreamSettings.TLSSettings.ServerName)
	assert.Len(t, view.StreamSettings.WsSettings.Path, 7)
	assert.True(t, strings.HasPrefix(view.StreamSettings.WsSettings.Path, "/"))
	assert.True(t, view.Sniffing.Enabled)
	require.Len(t, view.Settings.Clients, 1)
	assert.NotEqual(t, uuid.Nil, view.Settings.Clients[0].ID)
}

func TestInboundCreateEasyOverrides(t *testing.T) {
	id := uuid.New()
	svc, _, _ := newInboundService(t)
	view, err := svc.CreateEasy(context.Background(), EasyInboundInput{
		Port:       ptr(2083),
		Tag:        ptr("custom"),
		Up:         json.Number("1024"),
		ExpiryTime: json.Number("0"),
		UUID:       &id,
		Protocol:   ptr("trojan"),
		WsPath:     ptr("/fixed"),
		Sniffing:   ptr(false),
		Remark:     ptr("  two   words "),
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", view.Tag)
	assert.Equal(t, int64(1024), view.Up)
	assert.Zero(t, view.ExpiryTime)
	assert.Equal(t, id, view.Settings.Clients[0].ID)
	assert.Equal(t, inbound.ProtocolTrojan, view.Protocol)
	assert.Equal(t, "/fixed", view.StreamSettings.WsSettings.Path)
	assert.False(t, view.Sniffing.Enabled)
	assert.Equal(t, "two words", view.Remark)
}

func TestInboundCreateEasyRequiresPort(t *testing.T) {
	svc, _, _ := newInboundService(t)
	_, err := svc.CreateEasy(context.Background(), EasyInboundInput{})
	var incomplete *inbound.IncompleteBuilderError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"port", "tag"}, incomplete.Missing)
}

func TestInboundPreviewDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newInboundService(t)
	view, err := svc.Preview(ctx, EasyInboundInput{Port: ptr(443)})
	require.NoError(t, err)
	assert.Zero(t, view.ID)

	n, err := store.Inbounds().Count(ctx, repository.InboundFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInboundList(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInboundService(t)
	for i, port := range []int{1001, 1002, 1003} {
		input := fullInput(port, "t"+string(rune('a'+i)))
		if port == 1002 {
			input.Enable = ptr(false)
		}
		_, err := svc.Create(ctx, input)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, InboundListInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, repository.DefaultListLimit, all.Limit)
	require.Len(t, all.Items, 3)
	assert.Equal(t, 1003, all.Items[0].Port)

	enabled, err := svc.List(ctx, InboundListInput{Enable: ptr(true), Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), enabled.Total)
	assert.Len(t, enabled.Items, 1)

	byPort, err := svc.List(ctx, InboundListInput{Port: ptr(1002)})
	require.NoError(t, err)
	require.Len(t, byPort.Items, 1)
	assert.False(t, byPort.Items[0].Enable)
}

func TestInboundSetEnableAndTraffic(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInboundService(t)
	created, err := svc.Create(ctx, fullInput(443, "edge"))
	require.NoError(t, err)

	view, err := svc.SetEnable(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, view.Enable)

	_, err = svc.SetEnable(ctx, 999, true)
	assert.ErrorIs(t, err, ErrNotFound)

	view, err = svc.AddTraffic(ctx, created.ID, "1MB", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<30+int64(1)<<20, view.Up)

	_, err = svc.AddTraffic(ctx, created.ID, -5, nil)
	var verr *inbound.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "up", verr.Field)

	_, err = svc.AddTraffic(ctx, 999, 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInboundAddTrafficOverflowIsValidationError(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newInboundService(t)
	created, err := svc.Create(ctx, fullInput(443, "edge"))
	require.NoError(t, err)

	row, err := store.Inbounds().FindByID(ctx, created.ID)
	require.NoError(t, err)
	row.Down = math.MaxInt64 - 1
	require.NoError(t, store.Inbounds().Update(ctx, row))

	_, err = svc.AddTraffic(ctx, created.ID, nil, 2)
	var verr *inbound.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "traffic", verr.Field)
	assert.ErrorIs(t, err, inbound.ErrValidation)

	view, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-1), view.Down)
}

func TestDisableExhausted(t *testing.T) {
	ctx := context.Background()
	svc, store, notes := newInboundService(t)

	expired := fullInput(1001, "expired")
	expired.ExpiryTime = testNow.Add(-1).UnixMilli()
	_, err := svc.Create(ctx, expired)
	require.NoError(t, err)

	quota := fullInput(1002, "quota")
	quota.Up = "6GB"
	quota.Down = "4GB"
	_, err = svc.Create(ctx, quota)
	require.NoError(t, err)

	both := fullInput(1003, "both")
	both.ExpiryTime = testNow.Add(-1).UnixMilli()
	both.Up = "10GB"
	_, err = svc.Create(ctx, both)
	require.NoError(t, err)

	healthy := fullInput(1004, "healthy")
	healthy.ExpiryTime = 0
	_, err = svc.Create(ctx, healthy)
	require.NoError(t, err)

	report, err := svc.DisableExhausted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Disabled)
	assert.Len(t, report.Expired, 2)
	assert.Len(t, report.OverQuota, 2)

	reasons := map[string]string{}
	for _, n := range notes.notices {
		reasons[n.Tag] = n.Reason
	}
	assert.Equal(t, map[string]string{
		"expired": notifier.ReasonExpired,
		"quota":   notifier.ReasonOverQuota,
		"both":    notifier.ReasonExpired,
	}, reasons)

	enabled := true
	n, err := store.Inbounds().Count(ctx, repository.InboundFilter{Enable: &enabled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	again, err := svc.DisableExhausted(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Disabled)
}

func TestSanitizeRemark(t *testing.T) {
	assert.Equal(t, "", sanitizeRemark("   "))
	assert.Equal(t, "hello world", sanitizeRemark("<script>x</script>hello <i>world</i>"))
	assert.Equal(t, "café", sanitizeRemark("café"))
}
