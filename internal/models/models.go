// Package models defines the telemetry payloads accepted from devices and forwarded to the destination store.
package models

// CompactRecord is the abbreviated payload sent by a tracker.
// Values come from a JSON decoder with UseNumber enabled, so numbers are json.Number
// and are forwarded with their original text.
type CompactRecord map[string]any

// Lookup returns the raw value stored under key and whether the key was present at all.
// A present key may still hold nil (JSON null).
func (c CompactRecord) Lookup(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// ExpandedRecord represents the row inserted into the destination store.
// A nil field is absent and is omitted from the JSON body.
type ExpandedRecord struct {
	DeviceID      any `json:"device_id,omitempty"`
	SignalQuality any `json:"signal_quality,omitempty"`
	DataSource    any `json:"data_source,omitempty"`
	UptimeSeconds any `json:"uptime_seconds,omitempty"`

	GPSValid   any `json:"gps_valid,omitempty"`
	Latitude   any `json:"latitude,omitempty"`
	Longitude  any `json:"longitude,omitempty"`
	Altitude   any `json:"altitude,omitempty"`
	Satellites any `json:"satellites,omitempty"`
	HDOP       any `json:"hdop,omitempty"`

	AccelValid any `json:"accel_valid,omitempty"`
	AccelX     any `json:"accel_x,omitempty"`
	AccelY     any `json:"accel_y,omitempty"`
	AccelZ     any `json:"accel_z,omitempty"`

	GyroValid any `json:"gyro_valid,omitempty"`
	GyroX     any `json:"gyro_x,omitempty"`
	GyroY     any `json:"gyro_y,omitempty"`
	GyroZ     any `json:"gyro_z,omitempty"`

	MagValid any `json:"mag_valid,omitempty"`
	MagX     any `json:"mag_x,omitempty"`
	MagY     any `json:"mag_y,omitempty"`
	MagZ     any `json:"mag_z,omitempty"`

	TempValid   any `json:"temp_valid,omitempty"`
	Temperature any `json:"temperature,omitempty"`
}
