// Package fake provides utilities for generating random compact tracker payloads for testing and smoke runs.
package fake

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/woozymasta/biketrack/internal/models"
)

var sources = []string{"4G", "LTE-M", "WiFi"}

// Record builds one compact record the way the tracker firmware sends it.
// Sensor groups are dropped at random, like a board with a missing or failed sensor.
func Record(rng *rand.Rand) models.CompactRecord {
	rec := models.CompactRecord{
		"id":  fmt.Sprintf("A7670E_%03d", rng.Intn(20)+1),
		"sig": number(rng.Intn(32)),
		"src": sources[rng.Intn(len(sources))],
		"up":  number(rng.Intn(86400 * 7)),
	}

	// GPS fix around Lyon
	if rng.Float32() < 0.8 {
		rec["gps"] = true
		rec["lat"] = decimal(45.70+rng.Float64()*0.1, 6)
		rec["lng"] = decimal(4.80+rng.Float64()*0.1, 6)
		rec["alt"] = decimal(160+rng.Float64()*140, 1)
		rec["sat"] = number(rng.Intn(12) + 3)
		rec["hdop"] = decimal(0.6+rng.Float64()*3, 2)
	} else {
		rec["gps"] = false
	}

	if rng.Float32() < 0.9 {
		rec["acc"] = true
		rec["ax"] = decimal(rng.NormFloat64()*0.2, 3)
		rec["ay"] = decimal(rng.NormFloat64()*0.2, 3)
		rec["az"] = decimal(1+rng.NormFloat64()*0.05, 3)

		rec["gyr"] = true
		rec["gx"] = decimal(rng.NormFloat64()*15, 2)
		rec["gy"] = decimal(rng.NormFloat64()*15, 2)
		rec["gz"] = decimal(rng.NormFloat64()*15, 2)
	}

	// magnetometer is optional on most boards
	if rng.Float32() < 0.3 {
		rec["mag"] = true
		rec["mx"] = decimal(rng.NormFloat64()*30, 2)
		rec["my"] = decimal(rng.NormFloat64()*30, 2)
		rec["mz"] = decimal(rng.NormFloat64()*30, 2)
	}

	if rng.Float32() < 0.7 {
		rec["tmp"] = decimal(5+rng.Float64()*30, 1)
	}

	return rec
}

func number(n int) json.Number {
	return json.Number(strconv.Itoa(n))
}

func decimal(f float64, prec int) json.Number {
	return json.Number(strconv.FormatFloat(f, 'f', prec, 64))
}
