// Package mqtt provides the MQTT publisher for Wagonloader Core.
//
// Core publishes loading events for yard dashboards and external collectors;
// it never subscribes. The client wraps paho.mqtt.golang with connection
// management, auto-reconnect with exponential backoff, and a Last Will and
// Testament so subscribers can tell a crash from a graceful shutdown.
//
// Topic scheme:
//
//	wagonloader/event/loading/{siding}   per-bag loading events
//	wagonloader/system/status            online/offline status (retained)
package mqtt
