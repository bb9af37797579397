//go:build linux

package ble

import (
	"fmt"
	"log/slog"

	dbus "github.com/godbus/dbus/v5"
)

const (
	bluezService      = "org.bluez"
	bluezPath         = dbus.ObjectPath("/org/bluez")
	agentIface        = "org.bluez.Agent1"
	agentManagerIface = "org.bluez.AgentManager1"
	deviceIface       = "org.bluez.Device1"
	propsIface        = "org.freedesktop.DBus.Properties"

	agentPath       = dbus.ObjectPath("/com/enokida/padbridge/agent")
	agentCapability = "NoInputNoOutput"
)

// Agent answers BlueZ pairing requests unattended, so a phone can bond with
// the board without anyone at a terminal. With NoInputNoOutput capability
// BlueZ runs just-works pairing and only asks for authorization; the agent
// grants it and marks the device trusted so reconnects skip the prompt.
type Agent struct {
	bus     *dbus.Conn
	cleanup []func()
}

// RegisterAgent exports the agent on the system bus and makes it the
// default pairing agent.
func RegisterAgent() (*Agent, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("ble: connect system bus: %w", err)
	}

	a := &Agent{bus: bus}
	a.cleanup = append(a.cleanup, func() { bus.Close() })

	h := &agentHandlers{bus: bus}
	if err := bus.Export(h, agentPath, agentIface); err != nil {
		a.Close()
		return nil, fmt.Errorf("ble: export agent: %w", err)
	}
	a.cleanup = append(a.cleanup, func() {
		_ = bus.Export(nil, agentPath, agentIface)
	})

	mgr := bus.Object(bluezService, bluezPath)
	if call := mgr.Call(agentManagerIface+".RegisterAgent", 0, agentPath, agentCapability); call.Err != nil {
		a.Close()
		return nil, fmt.Errorf("ble: RegisterAgent: %w", call.Err)
	}
	a.cleanup = append(a.cleanup, func() {
		_ = mgr.Call(agentManagerIface+".UnregisterAgent", 0, agentPath).Err
	})

	if call := mgr.Call(agentManagerIface+".RequestDefaultAgent", 0, agentPath); call.Err != nil {
		a.Close()
		return nil, fmt.Errorf("ble: RequestDefaultAgent: %w", call.Err)
	}

	slog.Info("[BLE] pairing agent registered", "capability", agentCapability)
	return a, nil
}

// Close unregisters the agent and releases the bus. Cleanup runs once, in
// reverse order.
func (a *Agent) Close() error {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
	return nil
}

// agentHandlers implements org.bluez.Agent1. BlueZ calls these from its side
// of the bus; only methods returning *dbus.Error are exported.
type agentHandlers struct {
	bus *dbus.Conn
}

func (h *agentHandlers) Release() *dbus.Error { return nil }

func (h *agentHandlers) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	return "0000", nil
}

func (h *agentHandlers) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	return nil
}

func (h *agentHandlers) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	return 0, nil
}

func (h *agentHandlers) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	return nil
}

func (h *agentHandlers) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	h.trust(device)
	return nil
}

func (h *agentHandlers) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	h.trust(device)
	return nil
}

func (h *agentHandlers) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	h.trust(device)
	return nil
}

func (h *agentHandlers) Cancel() *dbus.Error { return nil }

// trust flips Device1.Trusted so BlueZ lets the bonded peer reconnect
// without another authorization round.
func (h *agentHandlers) trust(device dbus.ObjectPath) {
	obj := h.bus.Object(bluezService, device)
	call := obj.Call(propsIface+".Set", 0, deviceIface, "Trusted", dbus.MakeVariant(true))
	if call.Err != nil {
		slog.Warn("[BLE] failed to mark device trusted", "device", string(device), "error", call.Err)
		return
	}
	slog.Info("[BLE] device trusted", "device", string(device))
}
