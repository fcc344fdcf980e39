// Package zabbix is the inventory source adapter. It reads the hosts of the
// configured host groups over the Zabbix JSON-RPC API and converts them into
// reconcile.Entity values.
package zabbix
