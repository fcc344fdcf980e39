package zabbix

import (
	"encoding/json"
	"fmt"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      int64           `json:"id"`
}

// RPCError is an error object returned by the Zabbix API.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("zabbix api error %d: %s %s", e.Code, e.Message, e.Data)
}

// HostGroup is a Zabbix host group.
type HostGroup struct {
	GroupID string `json:"groupid"`
	Name    string `json:"name"`
}

// Interface is a host interface. Zabbix encodes numbers as strings, so the
// numeric fields are decoded loosely.
type Interface struct {
	IP   string `json:"ip"`
	Main any    `json:"main"`
	Type any    `json:"type"`
}

// Inventory holds the inventory fields used for reconciliation.
type Inventory struct {
	Name      string `json:"name"`
	OS        string `json:"os"`
	SerialNoA string `json:"serialno_a"`
	SerialNoB string `json:"serialno_b"`
	Hardware  string `json:"hardware"`
}

// UnmarshalJSON accepts the empty array Zabbix returns for hosts with inventory disabled.
func (i *Inventory) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		*i = Inventory{}
		return nil
	}
	type plain Inventory
	return json.Unmarshal(data, (*plain)(i))
}

// Host is a Zabbix host with its groups, interfaces and inventory.
type Host struct {
	HostID     string      `json:"hostid"`
	Host       string      `json:"host"`
	Name       string      `json:"name"`
	Status     any         `json:"status"`
	Groups     []HostGroup `json:"groups"`
	Interfaces []Interface `json:"interfaces"`
	Inventory  Inventory   `json:"inventory"`
}
