package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBagLoaded records one loaded bag for a wagon.
//
// The write is non-blocking; data is batched and sent asynchronously.
// This is the per-bag telemetry feed the loading driver emits, so yard
// operators can chart loading rates per siding and wagon.
func (c *Client) WriteBagLoaded(siding, wagonNumber string, count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bag_loaded",
		map[string]string{
			"siding": siding,
			"wagon":  wagonNumber,
		},
		map[string]interface{}{
			"loaded_bag_count": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSessionCompleted records a finished loading session.
//
// Parameters:
//   - siding: The siding the session ran on
//   - wagonsLoaded: How many wagons the session finished
//   - duration: Wall-clock session duration
func (c *Client) WriteSessionCompleted(siding string, wagonsLoaded int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"loading_session",
		map[string]string{
			"siding": siding,
		},
		map[string]interface{}{
			"wagons_loaded":    wagonsLoaded,
			"duration_seconds": duration.Seconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
