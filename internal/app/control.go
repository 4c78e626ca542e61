package app

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RegisterRequest is the body of POST /control/agents/register.
type RegisterRequest struct {
	AgentID    string `json:"agent_id"`
	WorkingDir string `json:"working_dir"`
}

// WriteRequest is the body of POST /control/agents/{id}/write.
type WriteRequest struct {
	Data string `json:"data"`
}

// ResizeRequest is the body of POST /control/agents/{id}/resize.
type ResizeRequest struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// RegisterControlRoutes mounts the agent-control surface a "sonar watch"
// daemon exposes for the standalone kill/write/resize/register
// subcommands, which have no supervisor of their own and so reach the
// one the daemon owns over loopback HTTP instead -- the Go equivalent of
// the original desktop app's in-process command dispatcher, minus the
// dispatcher itself (out of scope; see DESIGN.md).
func (a *App) RegisterControlRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/control/agents/register", a.handleRegister)
	mux.HandleFunc("/control/agents/", a.handleAgentAction)
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.AgentID == "" || req.WorkingDir == "" {
		http.Error(w, "agent_id and working_dir are required", http.StatusBadRequest)
		return
	}
	a.Registry.Register(req.AgentID, req.WorkingDir)
	w.WriteHeader(http.StatusNoContent)
}

// handleAgentAction dispatches /control/agents/{id}/write|resize|kill.
func (a *App) handleAgentAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/control/agents/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "expected /control/agents/{id}/{action}", http.StatusBadRequest)
		return
	}
	agentID, action := parts[0], parts[1]

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var err error
	switch action {
	case "write":
		var req WriteRequest
		if decErr := json.NewDecoder(r.Body).Decode(&req); decErr != nil {
			http.Error(w, "decode request: "+decErr.Error(), http.StatusBadRequest)
			return
		}
		err = a.Supervisor.Write(agentID, []byte(req.Data))
	case "resize":
		var req ResizeRequest
		if decErr := json.NewDecoder(r.Body).Decode(&req); decErr != nil {
			http.Error(w, "decode request: "+decErr.Error(), http.StatusBadRequest)
			return
		}
		err = a.Supervisor.Resize(agentID, req.Rows, req.Cols)
	case "kill":
		err = a.Supervisor.Kill(agentID)
	default:
		http.Error(w, "unknown action "+action, http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
