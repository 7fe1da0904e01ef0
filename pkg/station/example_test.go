package station_test

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/stationd/pkg/station"
)

// ExampleNew shows the minimal configuration for a WPA2 network.
func ExampleNew() {
	cfg := station.Config{
		Interface: "wlan0",
		SSID:      "workshop",
		Key:       "correct horse battery",
		Band:      "5",
	}

	st, err := station.New(cfg)
	if err != nil {
		fmt.Printf("invalid config: %v\n", err)
		return
	}

	fmt.Println(st.State())
	// Output: Stopped
}

// ExampleStation_Disconnect shows how a caller takes the link down for
// maintenance and brings it back.
func ExampleStation_Disconnect() {
	st, err := station.New(station.Config{SSID: "workshop"})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := st.Start(ctx); err != nil {
		return
	}
	defer st.Stop()

	if st.IsConnected() {
		_ = st.Disconnect(ctx)
		// ... maintenance ...
		st.Reconnect()
	}
}
