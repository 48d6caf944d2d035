package services

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// TrackTime logs how long funcName ran and returns the elapsed time.
// Call as: defer TrackTime("name", time.Now())
func TrackTime(funcName string, start time.Time) time.Duration {
	elapsed := time.Since(start)
	log.Debugf("%s took %d ms", funcName, elapsed.Milliseconds())
	return elapsed
}
