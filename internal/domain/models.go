package domain

import "time"

// ErrorKind classifies why a health check failed.
type ErrorKind string

const (
	KindNetwork ErrorKind = "NetworkError"
	KindTimeout ErrorKind = "TimeoutError"
	KindServer  ErrorKind = "ServerError"
	KindOffline ErrorKind = "OfflineError"
)

// Messages attached to failures that carry no further detail.
const (
	MsgNetwork = "Unable to connect to server"
	MsgTimeout = "Server request timed out"
	MsgOffline = "No internet connection"
)

// UserMessage is the text a blocking "server down" screen shows for this kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case KindOffline:
		return "You appear to be offline. Please check your internet connection and try again."
	case KindTimeout:
		return "The server is taking too long to respond. Please try again."
	case KindServer:
		return "The server is experiencing issues. Our team has been notified."
	default:
		return "We're having trouble connecting to the server. Please try again later."
	}
}

// Outcome is the result of one health check. A zero Kind means healthy.
type Outcome struct {
	Kind       ErrorKind `json:"type"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount uint      `json:"retryCount"`

	// not part of the read model
	StatusCode int     `json:"-"`
	LatencyMS  float64 `json:"-"`
}

func Healthy(at time.Time) Outcome {
	return Outcome{Timestamp: at.UTC()}
}

func Failed(kind ErrorKind, msg string, at time.Time) Outcome {
	return Outcome{Kind: kind, Message: msg, Timestamp: at.UTC()}
}

func (o Outcome) IsHealthy() bool { return o.Kind == "" }

// State is the monitor's belief about backend reachability.
type State struct {
	IsDown              bool     `json:"isDown"`
	IsChecking          bool     `json:"isChecking"`
	LastError           *Outcome `json:"lastError"`
	ConsecutiveFailures uint     `json:"retryCount"`
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	if s.LastError != nil {
		e := *s.LastError
		s.LastError = &e
	}
	return s
}
