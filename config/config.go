package config

import "time"

type (
	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int `yaml:"read_buffer_size"`
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed.
		ReadTimeout time.Duration `yaml:"read_timeout"`
		// WriteTimeout limits a single write to the socket. A peer not accepting data for
		// longer gets disconnected.
		WriteTimeout time.Duration `yaml:"write_timeout"`
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration `yaml:"accept_loop_interrupt_period"`
		// WriteQueueSize limits the number of pending write entries per session. Exceeding
		// it closes the session, as the peer apparently doesn't read anything.
		WriteQueueSize int `yaml:"write_queue_size"`
	}

	HTTP struct {
		// MaxHeadLength limits the request line together with the headers section.
		MaxHeadLength int `yaml:"max_head_length"`
		// MaxHeaders is the maximal number of header fields a request may carry.
		MaxHeaders int `yaml:"max_headers"`
		// MaxBodySize describes the maximal size of a request body. Requests declaring or
		// streaming more are rejected with 413.
		MaxBodySize int64 `yaml:"max_body_size"`
		// HeaderBufferSize is the initial capacity of the buffer response head is serialized into.
		HeaderBufferSize int `yaml:"header_buffer_size"`
	}

	Headers struct {
		// Default headers are headers to be included into every response implicitly, unless
		// explicitly overridden.
		Default map[string]string `yaml:"default" test:"nullable"`
		// Date enables the Date header in every response, unless the handler sets its own.
		Date bool `yaml:"date"`
	}

	Log struct {
		// Level is one of debug, info, warn or error.
		Level string `yaml:"level"`
		// Format is either text or json.
		Format string `yaml:"format"`
	}

	Admin struct {
		// Addr the admin endpoint serving metrics and status listens at. Empty disables it.
		Addr string `yaml:"addr" test:"nullable"`
	}
)

// Config holds settings used across various parts of ember, mainly restrictions, limitations
// and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	NET     NET     `yaml:"net"`
	HTTP    HTTP    `yaml:"http"`
	Headers Headers `yaml:"headers"`
	Log     Log     `yaml:"log"`
	Admin   Admin   `yaml:"admin"`
}

// Default returns default config.
func Default() *Config {
	return &Config{
		NET: NET{
			ReadBufferSize:            4 * 1024,
			ReadTimeout:               90 * time.Second,
			WriteTimeout:              30 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			WriteQueueSize:            1024,
		},
		HTTP: HTTP{
			MaxHeadLength:    16 * 1024,
			MaxHeaders:       50,
			MaxBodySize:      512 * 1024 * 1024, // 512 megabytes
			HeaderBufferSize: 1024,
		},
		Headers: Headers{
			Default: map[string]string{
				"Server": "ember",
			},
			Date: true,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}
