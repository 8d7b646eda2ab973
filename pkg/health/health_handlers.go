package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves the general checks. Degraded still answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.Check(), false)
	}
}

// ReadinessHandler serves the readiness checks. Anything but healthy is 503.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.CheckReadiness(), true)
	}
}

// LivenessHandler serves the liveness checks. Anything but healthy is 503.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.CheckLiveness(), true)
	}
}

// StatusCode maps a response status to an HTTP code.
func StatusCode(status Status, strict bool) int {
	switch {
	case status == StatusUnhealthy:
		return http.StatusServiceUnavailable
	case status == StatusDegraded && strict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

func writeResponse(w http.ResponseWriter, response Response, strict bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(response.Status, strict))
	json.NewEncoder(w).Encode(response)
}
