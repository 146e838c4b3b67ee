package nacos

import (
	"errors"
	"sync"
	"testing"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/stretchr/testify/require"
)

type fakeConfigClient struct {
	mu        sync.Mutex
	content   string
	getErr    error
	listeners []vo.ConfigParam
	canceled  int
}

func (f *fakeConfigClient) GetConfig(vo.ConfigParam) (string, error) {
	return f.content, f.getErr
}

func (f *fakeConfigClient) ListenConfig(p vo.ConfigParam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, p)
	return nil
}

func (f *fakeConfigClient) CancelListenConfig(vo.ConfigParam) error {
	f.canceled++
	return nil
}

func (f *fakeConfigClient) push(data string) {
	f.mu.Lock()
	ls := append([]vo.ConfigParam(nil), f.listeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l.OnChange("public", l.Group, l.DataId, data)
	}
}

func TestWatcher_FetchAndListen(t *testing.T) {
	req := require.New(t)
	// Given
	client := &fakeConfigClient{content: "log:\n  level: info\n"}
	var got []string
	w := NewWatcher(client, "dreams.yaml", "", func(data string) { got = append(got, data) }, nil)

	// When
	content, err := w.Fetch()
	req.NoError(err)
	req.NoError(w.Start())
	client.push("log:\n  level: debug\n")

	// Then
	req.Equal("log:\n  level: info\n", content)
	req.Equal([]string{"log:\n  level: debug\n"}, got)
	req.Equal("log:\n  level: debug\n", w.Current())
	req.Equal("DEFAULT_GROUP", client.listeners[0].Group)

	req.NoError(w.Stop())
	req.Equal(1, client.canceled)
}

func TestWatcher_CallbackPanicIsRecovered(t *testing.T) {
	client := &fakeConfigClient{}
	w := NewWatcher(client, "d", "g", func(string) { panic("bad config") }, nil)
	require.NoError(t, w.Start())
	require.NotPanics(t, func() { client.push("x") })
	require.Equal(t, "x", w.Current())
}

func TestWatcher_FetchError(t *testing.T) {
	w := NewWatcher(&fakeConfigClient{getErr: errors.New("timeout")}, "d", "g", nil, nil)
	_, err := w.Fetch()
	require.Error(t, err)
}

type fakeNamingClient struct {
	registered   []vo.RegisterInstanceParam
	deregistered []vo.DeregisterInstanceParam
	ok           bool
}

func (f *fakeNamingClient) RegisterInstance(p vo.RegisterInstanceParam) (bool, error) {
	f.registered = append(f.registered, p)
	return f.ok, nil
}

func (f *fakeNamingClient) DeregisterInstance(p vo.DeregisterInstanceParam) (bool, error) {
	f.deregistered = append(f.deregistered, p)
	return f.ok, nil
}

func TestRegistrar(t *testing.T) {
	req := require.New(t)
	client := &fakeNamingClient{ok: true}
	r := NewRegistrar(client, Instance{
		ServiceName: "dreams-gateway",
		IP:          "10.0.0.5",
		Port:        8080,
		Metadata:    map[string]string{"node": "gw-1", "protocol": "ws"},
	})

	req.NoError(r.Register())
	req.Len(client.registered, 1)
	req.Equal("DEFAULT_GROUP", client.registered[0].GroupName)
	req.True(client.registered[0].Ephemeral)
	req.Equal("gw-1", client.registered[0].Metadata["node"])

	req.NoError(r.Deregister())
	req.Equal(uint64(8080), client.deregistered[0].Port)

	client.ok = false
	req.Error(r.Register())
	req.Error(r.Deregister())
}
