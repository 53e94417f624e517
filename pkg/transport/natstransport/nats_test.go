package natstransport

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senshub-protocol/senshub-go/pkg/hubclient"
	"github.com/senshub-protocol/senshub-go/pkg/hubsim"
	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// natsURL returns the server URL for integration tests, skipping the
// test when no server is available.
func natsURL(t *testing.T) string {
	t.Helper()

	url := os.Getenv("SENSHUB_NATS_URL")
	if url == "" {
		t.Skip("SENSHUB_NATS_URL not set; skipping NATS integration test")
	}
	return url
}

func TestNewDefaults(t *testing.T) {
	tr, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, nats.DefaultURL, tr.config.URL)
	assert.Equal(t, DefaultSubjectPrefix, tr.config.SubjectPrefix)
}

func TestNewBridgeRequiresServe(t *testing.T) {
	_, err := NewBridge(BridgeConfig{})
	require.Error(t, err)
}

func TestOpenUnreachableServer(t *testing.T) {
	tr, err := New(Config{URL: "nats://127.0.0.1:1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = tr.Open(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrServiceUnavailable)
}

func TestNATSNoHub(t *testing.T) {
	url := natsURL(t)

	tr, err := New(Config{URL: url, SubjectPrefix: "senshub.test.nohub"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, err := tr.Open(ctx, nil)
	require.NoError(t, err)
	defer h.Close()

	sendCtx, sendCancel := context.WithTimeout(context.Background(), time.Second)
	defer sendCancel()

	err = h.Send(sendCtx, wire.LookupSUID, wire.KindDiscover, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrServiceUnavailable)
}

func TestNATSEndToEnd(t *testing.T) {
	url := natsURL(t)

	hub := hubsim.New(hubsim.Config{})
	suid := hub.AddSensor(hubsim.Sensor{
		DataType:   "accel",
		Vendor:     "senshub",
		Name:       "icm42688",
		MaxRate:    500,
		StreamType: model.StreamTypeContinuous,
	})
	defer hub.Close()

	bridge, err := NewBridge(BridgeConfig{
		URL:           url,
		SubjectPrefix: "senshub.test.e2e",
		Serve:         hub.ServeConn,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, bridge.Start(ctx))
	defer bridge.Close()

	tr, err := New(Config{URL: url, SubjectPrefix: "senshub.test.e2e"})
	require.NoError(t, err)

	events := make(chan any, 256)
	client, err := hubclient.New(hubclient.Config{
		Transport: tr,
		OnEvent: func(_ model.SensorType, event any) {
			select {
			case events <- event:
			default:
			}
		},
		ServiceTimeout: 5 * time.Second,
		RespTimeout:    2 * time.Second,
		IndTimeout:     3 * time.Second,
	})
	require.NoError(t, err)

	require.NoError(t, client.Init(ctx))
	defer client.Close()

	// Discovery round-trips through the bridge.
	suids, err := client.FindSensors(ctx, "accel")
	require.NoError(t, err)
	require.Len(t, suids, 1)
	assert.Equal(t, suid, suids[0])

	// Attribute query.
	attrs, err := client.Attributes(ctx, suid)
	require.NoError(t, err)
	assert.Equal(t, "icm42688", attrs.Name)
	assert.Equal(t, float32(500), attrs.MaxSampleRate)

	// Configure and wait for the sample stream to cross the bridge.
	_, err = client.Register(ctx, model.SensorTypeAccelerometer, suid)
	require.NoError(t, err)
	require.NoError(t, client.Configure(ctx, model.SensorRequest{
		SensorType:   model.SensorTypeAccelerometer,
		Enable:       true,
		SampleRateHz: 50,
	}))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			if sample, ok := event.(*wire.SampleEvent); ok {
				assert.Len(t, sample.Values, 3)
				require.NoError(t, client.Configure(ctx, model.SensorRequest{
					SensorType: model.SensorTypeAccelerometer,
				}))
				return
			}
		case <-deadline:
			t.Fatal("no sample crossed the bridge")
		}
	}
}
