package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"inventory-sync/core/reconcile"
	"inventory-sync/core/utils"

	"go.uber.org/zap"
)

var errUnexpectedStatusCode = errors.New("unexpected status code")

const (
	interfaceTypeAgent = 1
)

// Client talks JSON-RPC 2.0 to the Zabbix API. It implements reconcile.Source.
// Every FetchEntities and Ping call works in its own session, so concurrent
// callers never share or revoke each other's token.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
	nextID atomic.Int64
}

// Session is an authenticated context for API calls.
type Session struct {
	token string
	// owned is false for the static API token, which must never be logged out.
	owned bool
}

// NewClient creates a Zabbix client. No request is made until the first call.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	//nolint:gosec // operators may run Zabbix behind self-signed certificates
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Login opens a session. With a static token no request is made.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	if c.cfg.Token != "" {
		return &Session{token: c.cfg.Token}, nil
	}

	var token string
	params := map[string]string{"username": c.cfg.Username, "password": c.cfg.Password}
	if err := c.call(ctx, nil, "user.login", params, &token); err != nil {
		return nil, fmt.Errorf("%w: login: %w", reconcile.ErrSourceUnavailable, err)
	}
	c.logger.Debug("Logged in to Zabbix", zap.String("url", c.cfg.URL))
	return &Session{token: token, owned: true}, nil
}

// Logout ends a session opened by Login. It is a no-op for static tokens.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	if s == nil || !s.owned {
		return nil
	}
	var ok bool
	return c.call(ctx, s, "user.logout", []string{}, &ok)
}

// HostGroups returns the groups with the given names. Unknown names are skipped.
func (c *Client) HostGroups(ctx context.Context, s *Session, names []string) ([]HostGroup, error) {
	params := map[string]any{
		"output": []string{"groupid", "name"},
		"filter": map[string]any{"name": names},
	}
	var groups []HostGroup
	if err := c.call(ctx, s, "hostgroup.get", params, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Hosts returns the hosts of the given groups with interfaces and inventory.
func (c *Client) Hosts(ctx context.Context, s *Session, groupIDs []string) ([]Host, error) {
	params := map[string]any{
		"output":           []string{"hostid", "host", "name", "status"},
		"groupids":         groupIDs,
		"selectGroups":     []string{"groupid", "name"},
		"selectInterfaces": []string{"ip", "main", "type"},
		"selectInventory":  []string{"name", "os", "serialno_a", "serialno_b", "hardware"},
	}
	var hosts []Host
	if err := c.call(ctx, s, "host.get", params, &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// FetchEntities implements reconcile.Source.
func (c *Client) FetchEntities(ctx context.Context) ([]reconcile.Entity, error) {
	sess, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Logout(context.WithoutCancel(ctx), sess); err != nil {
			c.logger.Warn("Zabbix logout failed", zap.Error(err))
		}
	}()

	names := c.cfg.GroupNames()
	groups, err := c.HostGroups(ctx, sess, names)
	if err != nil {
		return nil, fmt.Errorf("%w: hostgroup.get: %w", reconcile.ErrSourceUnavailable, err)
	}
	if len(groups) == 0 {
		c.logger.Warn("None of the configured host groups exist", zap.Strings("groups", names))
		return nil, nil
	}

	ids := make([]string, 0, len(groups))
	wanted := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		ids = append(ids, g.GroupID)
		wanted[g.Name] = struct{}{}
	}

	hosts, err := c.Hosts(ctx, sess, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: host.get: %w", reconcile.ErrSourceUnavailable, err)
	}

	entities := make([]reconcile.Entity, 0, len(hosts))
	for _, h := range hosts {
		entities = append(entities, ToEntity(h, groupLabel(h, names, wanted)))
	}
	return entities, nil
}

// Ping verifies credentials by logging in and out.
func (c *Client) Ping(ctx context.Context) error {
	sess, err := c.Login(ctx)
	if err != nil {
		return err
	}
	return c.Logout(ctx, sess)
}

// ToEntity converts a host into the reconciliation model.
func ToEntity(h Host, group string) reconcile.Entity {
	return reconcile.Entity{
		ID: h.HostID,
		Attributes: reconcile.Attributes{
			DisplayName:         h.Name,
			NetworkAddress:      PrimaryIP(h),
			OSVersion:           h.Inventory.OS,
			SerialA:             h.Inventory.SerialNoA,
			SerialB:             h.Inventory.SerialNoB,
			HardwareDescription: h.Inventory.Hardware,
			Status:              utils.ToString(h.Status),
			GroupLabel:          group,
		},
	}
}

// PrimaryIP picks the main agent interface, then any main interface, then the first one.
func PrimaryIP(h Host) string {
	for _, iface := range h.Interfaces {
		if utils.ToBool(iface.Main) && utils.ToInt(iface.Type) == interfaceTypeAgent {
			return iface.IP
		}
	}
	for _, iface := range h.Interfaces {
		if utils.ToBool(iface.Main) {
			return iface.IP
		}
	}
	if len(h.Interfaces) > 0 {
		return h.Interfaces[0].IP
	}
	return ""
}

// groupLabel returns the first configured group the host belongs to.
func groupLabel(h Host, order []string, wanted map[string]struct{}) string {
	member := make(map[string]struct{}, len(h.Groups))
	for _, g := range h.Groups {
		if _, ok := wanted[g.Name]; ok {
			member[g.Name] = struct{}{}
		}
	}
	for _, name := range order {
		if _, ok := member[name]; ok {
			return name
		}
	}
	return ""
}

// call performs one request. A nil session sends no Authorization header.
func (c *Client) call(ctx context.Context, s *Session, method string, params, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	if s != nil && s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
