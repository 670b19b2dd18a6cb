package instance

import "os"

// GetID identifies this worker replica in logs. Kubernetes pods set
// PUSHRELAY_WORKER_ID from metadata.name; hostname is the fallback.
func GetID() string {
	if id := os.Getenv("PUSHRELAY_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
