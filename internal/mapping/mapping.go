// Package mapping expands compact tracker payloads into the destination store schema.
//
// Every destination field accepts two aliases: the short key sent by the firmware
// and the full column name. The short key wins; how it shadows the full name is
// decided by a Policy.
package mapping

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/woozymasta/biketrack/internal/models"
)

// Policy selects how a short key shadows its long alias.
type Policy int

const (
	// Presence uses the short key whenever it is present and not null,
	// so 0, false and "" sent by the device are kept.
	Presence Policy = iota

	// Legacy uses the short key only when it is truthy and otherwise takes the
	// long alias as-is. A falsy short value without a long alias becomes absent.
	Legacy
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case Presence:
		return "presence"
	case Legacy:
		return "legacy"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// Field binds one destination column to its short alias.
type Field struct {
	target func(*models.ExpandedRecord) *any
	Short  string
	Long   string
}

// Fields is the mapping table in destination schema order.
// temp_valid is not listed here, it is derived in Expand.
var Fields = []Field{
	{Short: "id", Long: "device_id", target: func(r *models.ExpandedRecord) *any { return &r.DeviceID }},
	{Short: "sig", Long: "signal_quality", target: func(r *models.ExpandedRecord) *any { return &r.SignalQuality }},
	{Short: "src", Long: "data_source", target: func(r *models.ExpandedRecord) *any { return &r.DataSource }},
	{Short: "up", Long: "uptime_seconds", target: func(r *models.ExpandedRecord) *any { return &r.UptimeSeconds }},

	{Short: "gps", Long: "gps_valid", target: func(r *models.ExpandedRecord) *any { return &r.GPSValid }},
	{Short: "lat", Long: "latitude", target: func(r *models.ExpandedRecord) *any { return &r.Latitude }},
	{Short: "lng", Long: "longitude", target: func(r *models.ExpandedRecord) *any { return &r.Longitude }},
	{Short: "alt", Long: "altitude", target: func(r *models.ExpandedRecord) *any { return &r.Altitude }},
	{Short: "sat", Long: "satellites", target: func(r *models.ExpandedRecord) *any { return &r.Satellites }},
	{Short: "hdop", Long: "hdop", target: func(r *models.ExpandedRecord) *any { return &r.HDOP }},

	{Short: "acc", Long: "accel_valid", target: func(r *models.ExpandedRecord) *any { return &r.AccelValid }},
	{Short: "ax", Long: "accel_x", target: func(r *models.ExpandedRecord) *any { return &r.AccelX }},
	{Short: "ay", Long: "accel_y", target: func(r *models.ExpandedRecord) *any { return &r.AccelY }},
	{Short: "az", Long: "accel_z", target: func(r *models.ExpandedRecord) *any { return &r.AccelZ }},

	{Short: "gyr", Long: "gyro_valid", target: func(r *models.ExpandedRecord) *any { return &r.GyroValid }},
	{Short: "gx", Long: "gyro_x", target: func(r *models.ExpandedRecord) *any { return &r.GyroX }},
	{Short: "gy", Long: "gyro_y", target: func(r *models.ExpandedRecord) *any { return &r.GyroY }},
	{Short: "gz", Long: "gyro_z", target: func(r *models.ExpandedRecord) *any { return &r.GyroZ }},

	{Short: "mag", Long: "mag_valid", target: func(r *models.ExpandedRecord) *any { return &r.MagValid }},
	{Short: "mx", Long: "mag_x", target: func(r *models.ExpandedRecord) *any { return &r.MagX }},
	{Short: "my", Long: "mag_y", target: func(r *models.ExpandedRecord) *any { return &r.MagY }},
	{Short: "mz", Long: "mag_z", target: func(r *models.ExpandedRecord) *any { return &r.MagZ }},

	{Short: "tmp", Long: "temperature", target: func(r *models.ExpandedRecord) *any { return &r.Temperature }},
}

const (
	tempShortKey = "tmp"
	tempValidKey = "temp_valid"
)

// Expand builds the destination record from a compact one. Unknown keys are ignored
// and missing keys stay absent; Expand never rejects a payload.
func Expand(rec models.CompactRecord, policy Policy) models.ExpandedRecord {
	var out models.ExpandedRecord

	for _, f := range Fields {
		*f.target(&out) = resolve(rec, f.Short, f.Long, policy)
	}

	// tmp counts as a valid reading whenever the key was sent, whatever its value
	if _, ok := rec.Lookup(tempShortKey); ok {
		out.TempValid = true
	} else {
		out.TempValid = rec[tempValidKey]
	}

	return out
}

// resolve picks the value for one destination field.
func resolve(rec models.CompactRecord, short, long string, policy Policy) any {
	v, ok := rec.Lookup(short)

	switch policy {
	case Legacy:
		if ok && Truthy(v) {
			return v
		}
	default:
		if ok && v != nil {
			return v
		}
	}

	return rec[long]
}

// Truthy reports whether v would pass a JavaScript boolean test.
// nil, false, zero numbers, NaN and empty strings are falsy; everything else,
// including empty objects and arrays, is truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			// out of range literals are still non-zero
			return true
		}
		return f != 0
	case float64:
		return !math.IsNaN(t) && t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}
