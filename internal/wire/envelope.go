// Package wire is the request/response framing the specification leaves
// as "assumed" (§1, out of scope: RPC codegen). It follows the
// teacher's own length-prefixed framing in internal/network/server.go,
// with each envelope's key/value scalars carried as marshaled
// google.golang.org/protobuf structpb.Value messages, the same
// self-describing scalar container the original source's server used
// (prost_types::Value).
package wire

// Method identifies the KV operation an Envelope carries.
type Method uint8

const (
	MethodGet Method = iota
	MethodCreate
	MethodUpdate
	MethodDelete
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "Get"
	case MethodCreate:
		return "Create"
	case MethodUpdate:
		return "Update"
	case MethodDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Envelope is one request or response frame. Key is always present on a
// request; Value is present on Create/Update requests and on successful
// Get responses. ErrorCode is empty on success.
type Envelope struct {
	Method Method
	RequestID string
	Key       []byte
	Value     []byte
	// Internal marks a write as leader-to-follower replication traffic,
	// exempting it from the receiving node's leader-only write guard.
	Internal     bool
	ErrorCode    string
	ErrorMessage string
}

// Failed reports whether the envelope carries an error response.
func (e Envelope) Failed() bool { return e.ErrorCode != "" }
