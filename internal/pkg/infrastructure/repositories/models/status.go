package models

//Status values recorded with each reading
const (
	StatusNormal               = "Normal"
	StatusDaylightOff          = "Daylight_Off"
	StatusDaylightInefficiency = "Daylight_Inefficiency"
)

//IsKnownStatus reports whether status is part of the recorded status vocabulary
func IsKnownStatus(status string) bool {
	switch status {
	case StatusNormal, StatusDaylightOff, StatusDaylightInefficiency:
		return true
	}
	return false
}
