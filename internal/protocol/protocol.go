package protocol

import "encoding/json"

const Version = "1.0"

// Routes served by the agent server.
const (
	PathSync = "/api/sync"
	PathWS   = "/v1/ws"
)

// Agent types with protocol-level meaning.
const (
	AgentTypeScript = "script"
)

// BaseRequest peeks at the identifying fields of a sync payload without
// validating it, so transports can attribute failures to a caller.
type BaseRequest struct {
	Input struct {
		AgentType string `json:"agentType"`
		SyncID    string `json:"syncId"`
		AgentID   string `json:"agentId"`
	} `json:"input"`
}

func DecodeBase(b []byte) (BaseRequest, error) {
	var m BaseRequest
	err := json.Unmarshal(b, &m)
	return m, err
}
