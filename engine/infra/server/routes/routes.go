package routes

import "fmt"

// Version is the API version segment used in routing.
const Version = "v0"

// Healthz is the liveness probe path.
const Healthz = "/healthz"

// Readyz is the readiness probe path.
const Readyz = "/readyz"

// Base returns the versioned API base path (e.g., "/api/v0").
func Base() string {
	return fmt.Sprintf("/api/%s", Version)
}

// Twin returns the twin configuration base path (e.g., "/api/v0/twin").
func Twin() string {
	return Base() + "/twin"
}

// TwinReported returns the path of the serialized reported configuration.
func TwinReported() string { return Twin() + "/reported" }

// TwinSnapshot returns the path of the active configuration values.
func TwinSnapshot() string { return Twin() + "/snapshot" }

// TwinStatus returns the path of the last update outcome.
func TwinStatus() string { return Twin() + "/status" }

// TwinHistory returns the path of the persisted update history.
func TwinHistory() string { return Twin() + "/history" }
