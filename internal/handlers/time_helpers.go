package handlers

import (
	"time"
)

func parseDateIn(loc *time.Location, dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, loc)
}

func isValidHM(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
