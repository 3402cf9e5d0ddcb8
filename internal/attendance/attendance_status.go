package attendance

import "strings"

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
)

var statuses = map[string]Status{
	"present": StatusPresent,
	"absent":  StatusAbsent,
	"late":    StatusLate,
}

// ParseStatus accepts any letter case and returns the canonical form.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statuses[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

func (s Status) String() string {
	return string(s)
}
