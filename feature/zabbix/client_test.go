package zabbix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"inventory-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeZabbix struct {
	mu      sync.Mutex
	methods []string
	auth    []string
	groups  []HostGroup
	hosts   string
	failOn  string
	logins  int

	// entered and release pause hostgroup.get when set.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeZabbix) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api_jsonrpc.php", r.URL.Path)

		var req rpcRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		f.mu.Lock()
		f.methods = append(f.methods, req.Method)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		if req.Method == "user.login" {
			f.logins++
		}
		logins := f.logins
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if req.Method == f.failOn {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"Invalid params.","data":"boom"},"id":1}`))
			return
		}

		var result string
		switch req.Method {
		case "user.login":
			result = `"session-token"`
			if logins > 1 {
				result = fmt.Sprintf(`"session-token-%d"`, logins)
			}
		case "user.logout":
			result = `true`
		case "hostgroup.get":
			if f.entered != nil {
				f.entered <- struct{}{}
				<-f.release
			}
			b, _ := json.Marshal(f.groups)
			result = string(b)
		case "host.get":
			result = f.hosts
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":` + result + `,"id":1}`))
	}
}

const hostsJSON = `[
  {"hostid":"10001","host":"stor-01","name":"Storage 01","status":"0",
   "groups":[{"groupid":"7","name":"DataStore/DataCenter/Atyrau"},{"groupid":"9","name":"Linux servers"}],
   "interfaces":[{"ip":"10.0.0.9","main":"0","type":"1"},{"ip":"10.0.0.1","main":"1","type":"1"}],
   "inventory":{"os":"7.2","serialno_a":"SN1","serialno_b":"","hardware":"NetApp AFF A400"}},
  {"hostid":"10002","host":"stor-02","name":"Storage 02","status":"1",
   "groups":[{"groupid":"5","name":"DataStore/DataCenter/Almaty"}],
   "interfaces":[],
   "inventory":[]}
]`

func newTestClient(t *testing.T, f *fakeZabbix, cfg Config) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL
	if cfg.Groups == "" {
		cfg.Groups = "DataStore/DataCenter/Almaty, DataStore/DataCenter/Atyrau"
	}
	return NewClient(cfg, nil)
}

func TestFetchEntities(t *testing.T) {
	f := &fakeZabbix{
		groups: []HostGroup{{GroupID: "5", Name: "DataStore/DataCenter/Almaty"}, {GroupID: "7", Name: "DataStore/DataCenter/Atyrau"}},
		hosts:  hostsJSON,
	}
	c := newTestClient(t, f, Config{Username: "api", Password: "secret"})

	entities, err := c.FetchEntities(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, reconcile.Entity{
		ID: "10001",
		Attributes: reconcile.Attributes{
			DisplayName:         "Storage 01",
			NetworkAddress:      "10.0.0.1",
			OSVersion:           "7.2",
			SerialA:             "SN1",
			HardwareDescription: "NetApp AFF A400",
			Status:              "0",
			GroupLabel:          "DataStore/DataCenter/Atyrau",
		},
	}, entities[0])

	assert.Equal(t, "10002", entities[1].ID)
	assert.Empty(t, entities[1].Attributes.NetworkAddress)
	assert.Empty(t, entities[1].Attributes.HardwareDescription)
	assert.Equal(t, "DataStore/DataCenter/Almaty", entities[1].Attributes.GroupLabel)

	assert.Equal(t, []string{"user.login", "hostgroup.get", "host.get", "user.logout"}, f.methods)
	assert.Empty(t, f.auth[0])
	assert.Equal(t, "Bearer session-token", f.auth[1])
}

func TestFetchEntitiesWithStaticToken(t *testing.T) {
	f := &fakeZabbix{
		groups: []HostGroup{{GroupID: "5", Name: "DataStore/DataCenter/Almaty"}},
		hosts:  `[]`,
	}
	c := newTestClient(t, f, Config{Token: "static"})

	entities, err := c.FetchEntities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.Equal(t, []string{"hostgroup.get", "host.get"}, f.methods)
	assert.Equal(t, []string{"Bearer static", "Bearer static"}, f.auth)
}

func TestPingDuringFetchKeepsFetchSession(t *testing.T) {
	f := &fakeZabbix{
		groups:  []HostGroup{{GroupID: "5", Name: "DataStore/DataCenter/Almaty"}},
		hosts:   `[]`,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := newTestClient(t, f, Config{Username: "api", Password: "secret"})

	fetchErr := make(chan error, 1)
	go func() {
		_, err := c.FetchEntities(context.Background())
		fetchErr <- err
	}()

	<-f.entered
	require.NoError(t, c.Ping(context.Background()))
	close(f.release)
	require.NoError(t, <-fetchErr)

	f.mu.Lock()
	defer f.mu.Unlock()
	byMethod := map[string][]string{}
	for i, m := range f.methods {
		byMethod[m] = append(byMethod[m], f.auth[i])
	}
	assert.Equal(t, []string{"Bearer session-token"}, byMethod["host.get"])
	assert.ElementsMatch(t, []string{"Bearer session-token", "Bearer session-token-2"}, byMethod["user.logout"])
}

func TestPingStaticTokenMakesNoRequest(t *testing.T) {
	f := &fakeZabbix{}
	c := newTestClient(t, f, Config{Token: "static"})

	require.NoError(t, c.Ping(context.Background()))
	assert.Empty(t, f.methods)
}

func TestFetchEntitiesNoGroups(t *testing.T) {
	f := &fakeZabbix{}
	c := newTestClient(t, f, Config{Token: "static"})

	entities, err := c.FetchEntities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.NotContains(t, f.methods, "host.get")
}

func TestFetchEntitiesErrors(t *testing.T) {
	t.Run("LoginRejected", func(t *testing.T) {
		f := &fakeZabbix{failOn: "user.login"}
		c := newTestClient(t, f, Config{Username: "api", Password: "wrong"})

		_, err := c.FetchEntities(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, reconcile.ErrSourceUnavailable)

		var rpcErr *RPCError
		assert.True(t, errors.As(err, &rpcErr))
	})

	t.Run("HostQueryFails", func(t *testing.T) {
		f := &fakeZabbix{
			groups: []HostGroup{{GroupID: "5", Name: "DataStore/DataCenter/Almaty"}},
			failOn: "host.get",
		}
		c := newTestClient(t, f, Config{Token: "static"})

		_, err := c.FetchEntities(context.Background())
		assert.ErrorIs(t, err, reconcile.ErrSourceUnavailable)
	})

	t.Run("HTTPStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewClient(Config{URL: srv.URL, Token: "static", Groups: "x"}, nil)
		_, err := c.FetchEntities(context.Background())
		assert.ErrorIs(t, err, reconcile.ErrSourceUnavailable)
		assert.ErrorIs(t, err, errUnexpectedStatusCode)
	})
}

func TestPrimaryIP(t *testing.T) {
	tests := []struct {
		name       string
		interfaces []Interface
		want       string
	}{
		{"MainAgent", []Interface{{IP: "1.1.1.1", Main: "1", Type: "2"}, {IP: "2.2.2.2", Main: "1", Type: "1"}}, "2.2.2.2"},
		{"MainAny", []Interface{{IP: "1.1.1.1", Main: "0", Type: "1"}, {IP: "2.2.2.2", Main: "1", Type: "2"}}, "2.2.2.2"},
		{"First", []Interface{{IP: "1.1.1.1", Main: "0", Type: "2"}, {IP: "2.2.2.2", Main: "0", Type: "1"}}, "1.1.1.1"},
		{"NumericFields", []Interface{{IP: "3.3.3.3", Main: float64(1), Type: float64(1)}}, "3.3.3.3"},
		{"None", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryIP(Host{Interfaces: tt.interfaces}))
		})
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{URL: "https://zabbix.example.com/", Groups: " a ,, b "}
	assert.Equal(t, "https://zabbix.example.com/api_jsonrpc.php", cfg.Endpoint())
	assert.Equal(t, []string{"a", "b"}, cfg.GroupNames())

	cfg.URL = "https://zabbix.example.com/api_jsonrpc.php"
	assert.Equal(t, "https://zabbix.example.com/api_jsonrpc.php", cfg.Endpoint())
}
