// Package station provides an embeddable wireless station manager.
//
// A Station keeps one interface associated with a single configured
// network. It submits connect attempts through wpa_supplicant, bounds each
// attempt with an early-warning and a hard-abort deadline, and after every
// failure either bounces the interface or power-cycles the radio before
// trying again.
//
// # Basic Usage
//
//	cfg := station.Config{
//	    Interface: "wlan0",
//	    SSID:      "workshop",
//	    Key:       "correct horse battery",
//	    StateDir:  "/var/lib/stationd",
//	}
//
//	st, err := station.New(cfg, station.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := st.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Stop()
//
// # Collaborators
//
// By default the station talks to wpa_supplicant over the system D-Bus,
// toggles the interface with ioctl, waits for the supplicant control socket
// to appear and, when GPIO pins are configured, power-cycles the radio via
// sysfs. Each of these can be replaced with [WithDriver],
// [WithPowerSequencer], [WithReadiness] and [WithStateRepository].
//
// Connection events are delivered to every [EventSink] registered with
// [WithEventSink]. Sinks are called from the connection loop and must not
// block.
//
// # Manual Disconnect
//
// [Station.Disconnect] drops the link and holds the loop so it does not
// reconnect on its own. [Station.Reconnect] releases the hold.
package station
