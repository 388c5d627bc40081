package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/pose"
	"github.com/normanking/cortexrig/internal/rig"
)

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func frames(ids ...string) []animator.Frame {
	out := make([]animator.Frame, len(ids))
	for i, id := range ids {
		out[i] = animator.Frame{
			ID:     id,
			Bones:  rig.BoneMap{rig.Head: {Rotation: rig.Rotation{Y: 0.2}}},
			Morphs: rig.Morphs{expression.EyeBlinkLeft: 0.5},
		}
	}
	return out
}

func TestHelloAndBroadcast(t *testing.T) {
	s := NewServer(Config{Every: 1}, zerolog.Nop())
	s.SetRoster(func() []string { return []string{"a", "b"} })
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv, nil)
	hello := read(t, conn)
	assert.Equal(t, TypeHello, hello.Type)
	assert.Equal(t, []string{"a", "b"}, hello.IDs)
	require.Equal(t, 1, s.ClientCount())

	s.Publish(frames("a", "b"))
	msg := read(t, conn)
	assert.Equal(t, TypeFrames, msg.Type)
	require.Len(t, msg.Frames, 2)
	assert.Equal(t, "b", msg.Frames[1].ID)
	head, _ := msg.Frames[0].Bones.Rotation(rig.Head)
	assert.Equal(t, 0.2, head.Y)
	assert.Equal(t, 0.5, msg.Frames[0].Morphs[expression.EyeBlinkLeft])
}

func TestPublishDecimates(t *testing.T) {
	s := NewServer(Config{Every: 2}, zerolog.Nop())
	srv := httptest.NewServer(s)
	defer srv.Close()
	conn := dial(t, srv, nil)
	read(t, conn)

	for i := 0; i < 3; i++ {
		s.Publish(frames("a"))
	}
	assert.Equal(t, uint64(1), read(t, conn).Seq)
	assert.Equal(t, uint64(3), read(t, conn).Seq)
	assert.Equal(t, uint64(3), s.Stats().Published)
}

func TestCommandsReachHandler(t *testing.T) {
	s := NewServer(Config{}, zerolog.Nop())
	var mu sync.Mutex
	var got []Command
	s.OnCommand(func(cmd Command) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, cmd)
		if cmd.ID != "a" {
			return assert.AnError
		}
		return nil
	})
	srv := httptest.NewServer(s)
	defer srv.Close()
	conn := dial(t, srv, nil)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Command{Type: "gesture", ID: "a", Name: "wave"}))
	require.NoError(t, conn.WriteJSON(Command{Type: "gesture", ID: "zz", Name: "wave"}))
	reply := read(t, conn)
	assert.Equal(t, TypeError, reply.Type)
	assert.Equal(t, assert.AnError.Error(), reply.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, TypeError, read(t, conn).Type)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, Command{Type: "gesture", ID: "a", Name: "wave"}, got[0])
}

func TestOriginAllowList(t *testing.T) {
	s := NewServer(Config{Origins: []string{"http://viewer.local"}}, zerolog.Nop())
	srv := httptest.NewServer(s)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, http.Header{"Origin": {"http://viewer.local"}})
	assert.Equal(t, TypeHello, read(t, conn).Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	s := NewServer(Config{}, zerolog.Nop())
	srv := httptest.NewServer(s)
	defer srv.Close()
	conn := dial(t, srv, nil)
	read(t, conn)
	require.Equal(t, 1, s.ClientCount())

	conn.Close()
	assert.Eventually(t, func() bool { return s.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	s.Publish(frames("a"))
}

func TestCommandApply(t *testing.T) {
	c := animator.New(animator.DefaultConfig(), animator.WithID("a"))
	c.AttachSkeleton(rig.NewFullSkeleton())
	c.Tick(1.0/60, 1.0/60)

	require.NoError(t, Command{Type: "pose", Name: string(pose.Confident)}.Apply(c))
	assert.Equal(t, pose.Confident, c.Pose())

	require.NoError(t, Command{Type: "gesture", Name: string(gesture.Nod)}.Apply(c))
	assert.Equal(t, gesture.Nod, c.GestureState().Current)
	require.NoError(t, Command{Type: "stop"}.Apply(c))
	assert.True(t, c.GestureState().BlendingOut)

	require.NoError(t, Command{Type: "lookat", Target: &[3]float64{1, 1.6, 2}}.Apply(c))
	require.NoError(t, Command{Type: "lookat"}.Apply(c))

	ctx := expression.RelationshipContext{HasSelection: true, IsSelf: true}
	require.NoError(t, Command{Type: "context", Context: &ctx}.Apply(c))
	assert.Equal(t, expression.Confidence, c.Expression())
	assert.Error(t, Command{Type: "context"}.Apply(c))

	require.NoError(t, Command{Type: "quality", Name: animator.QualityLow}.Apply(c))
	assert.False(t, c.Quality().EnableEyeTracking)
	assert.ErrorIs(t, Command{Type: "quality", Name: "ultra"}.Apply(c), animator.ErrUnknownQuality)

	assert.ErrorIs(t, Command{Type: "dance"}.Apply(c), ErrUnknownCommand)
}

func TestMetricsReflectBroadcasts(t *testing.T) {
	s := NewServer(Config{Every: 1}, zerolog.Nop())
	reg := prometheus.NewRegistry()
	s.RegisterMetrics(reg)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv, nil)
	read(t, conn)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	s.Publish(frames("a"))
	read(t, conn)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP cortexrig_stream_clients Connected viewers
# TYPE cortexrig_stream_clients gauge
cortexrig_stream_clients 1
# HELP cortexrig_stream_published_total Frame sets handed to the stream server
# TYPE cortexrig_stream_published_total counter
cortexrig_stream_published_total 1
`), "cortexrig_stream_clients", "cortexrig_stream_published_total"))
}

func TestHandleMountsExtraRoutes(t *testing.T) {
	s := NewServer(Config{}, zerolog.Nop())
	s.Handle("/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	assert.Contains(t, s.routes, "/ping")
}
