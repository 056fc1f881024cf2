package domain

import (
	"testing"
	"time"
)

var stormWeek = time.Date(2019, time.September, 13, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return stormWeek.AddDate(0, 0, offset)
}

// mkSignal builds a consecutive daily signal starting at from.
func mkSignal(t *testing.T, from time.Time, values ...float64) DailySignal {
	t.Helper()
	pts := make([]SignalPoint, len(values))
	for i, v := range values {
		pts[i] = SignalPoint{Date: from.AddDate(0, 0, i), Value: v}
	}
	return DailySignal{Unit: "483610223005", Points: pts}
}

func mkRecord(unit string, uid int, count float64) MobilityRecord {
	d, _ := DateFromUID(uid)
	return MobilityRecord{
		OriginUnit:             "origin-" + unit,
		DestinationUnit:        unit,
		DeviceCount:            count,
		DestinationDeviceCount: count,
		Year:                   d.Year(),
		UID:                    uid,
		Date:                   d,
	}
}
