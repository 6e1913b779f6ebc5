package stage

import "fmt"

// Health reports whether a stage's collaborators are ready for work.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy builds a ready health report for the named stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy builds a not-ready health report with a human readable reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

func (h Health) String() string {
	if h.Ready {
		return fmt.Sprintf("%s: ready", h.Name)
	}
	if h.Detail == "" {
		return fmt.Sprintf("%s: not ready", h.Name)
	}
	return fmt.Sprintf("%s: not ready (%s)", h.Name, h.Detail)
}
