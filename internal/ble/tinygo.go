package ble

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinygoRadio drives the host Bluetooth adapter through
// tinygo.org/x/bluetooth (BlueZ over D-Bus on Linux).
type TinygoRadio struct {
	adapter *bluetooth.Adapter

	mu          sync.Mutex
	enabled     bool
	advertising bool
	adv         *bluetooth.Advertisement
	report      bluetooth.Characteristic
	peer        Peer
}

// NewTinygoRadio returns a radio over the default host adapter.
func NewTinygoRadio() *TinygoRadio {
	return &TinygoRadio{adapter: bluetooth.DefaultAdapter}
}

func (r *TinygoRadio) Enable(cfg Config, ev Events) error {
	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	r.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		p := Peer{Addr: device.Address.String()}
		if connected {
			r.mu.Lock()
			r.peer = p
			r.mu.Unlock()
			if ev.OnConnect != nil {
				ev.OnConnect(p)
			}
			// BlueZ runs the pairing handshake itself (the registered
			// agent answers its requests) and reconnects bonded peers
			// without re-pairing, so the link counts as secured here.
			if ev.OnSecured != nil {
				ev.OnSecured(p, true)
			}
			// This API exposes no CCCD callback; BlueZ drops notify
			// writes until the peer subscribes, so report the link
			// subscribed as soon as it is up.
			if ev.OnSubscribe != nil {
				ev.OnSubscribe(p, true)
			}
			return
		}
		r.mu.Lock()
		r.peer = Peer{}
		r.mu.Unlock()
		if ev.OnDisconnect != nil {
			ev.OnDisconnect(p)
		}
	})

	err := r.adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.New16BitUUID(ServiceUUID),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &r.report,
				UUID:   bluetooth.New16BitUUID(ReportCharUUID),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
			{
				UUID:  bluetooth.New16BitUUID(DescriptorCharUUID),
				Value: cfg.Descriptor,
				Flags: bluetooth.CharacteristicReadPermission,
			},
			{
				UUID: bluetooth.New16BitUUID(ControlCharUUID),
				Flags: bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if ev.OnWrite == nil {
						return
					}
					r.mu.Lock()
					p := r.peer
					r.mu.Unlock()
					ev.OnWrite(p, append([]byte(nil), value...))
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ble: register input service: %w", err)
	}

	adv := r.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    cfg.DeviceName,
		ServiceUUIDs: []bluetooth.UUID{bluetooth.New16BitUUID(ServiceUUID)},
		Interval:     bluetooth.NewDuration(cfg.AdvertisingInterval),
	}); err != nil {
		return fmt.Errorf("ble: configure advertisement: %w", err)
	}

	r.mu.Lock()
	r.adv = adv
	r.enabled = true
	r.mu.Unlock()

	slog.Info("[BLE] adapter enabled", "name", cfg.DeviceName)
	return nil
}

func (r *TinygoRadio) Advertise(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return ErrNotEnabled
	}
	if enabled == r.advertising {
		return nil
	}
	if enabled {
		if err := r.adv.Start(); err != nil {
			return fmt.Errorf("ble: start advertising: %w", err)
		}
	} else {
		if err := r.adv.Stop(); err != nil {
			return fmt.Errorf("ble: stop advertising: %w", err)
		}
	}
	r.advertising = enabled
	return nil
}

func (r *TinygoRadio) Notify(payload []byte) error {
	r.mu.Lock()
	enabled := r.enabled
	r.mu.Unlock()
	if !enabled {
		return ErrNotEnabled
	}
	if _, err := r.report.Write(payload); err != nil {
		return fmt.Errorf("ble: notify report: %w", err)
	}
	return nil
}

func (r *TinygoRadio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return nil
	}
	r.enabled = false
	if r.advertising {
		r.advertising = false
		if err := r.adv.Stop(); err != nil {
			return fmt.Errorf("ble: stop advertising: %w", err)
		}
	}
	return nil
}

// Compile-time check that TinygoRadio implements Radio.
var _ Radio = (*TinygoRadio)(nil)
