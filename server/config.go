package server

import "time"

// Config is the web server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// SessionTTL is how long an idle browser session keeps its conversation.
	SessionTTL time.Duration

	// Model is shown in the sidebar.
	Model string
}
