package app

import (
	"net/http"

	"github.com/frudas24/roomwire/internal/protocol"
	"github.com/frudas24/roomwire/internal/webrtc"
	json "github.com/goccy/go-json"
)

type healthResponse struct {
	OK          bool             `json:"ok"`
	Connections int              `json:"connections"`
	Peers       int              `json:"peers"`
	Negotiate   bool             `json:"negotiate"`
	RTP         *webrtc.RTPStats `json:"rtp,omitempty"`
}

type kindResponse struct {
	Type  string `json:"type"`
	Typed bool   `json:"typed"`
}

// RegisterRoutes wires the signaling endpoint and API handlers onto the mux.
func (a *App) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(a.cfg.WSPath, a.Signaling())
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/kinds", handleKinds)
}

// handleHealth reports liveness and connection counts.
func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		OK:          true,
		Connections: a.signaling.Peers(),
		Negotiate:   a.negotiator != nil,
	}
	if a.negotiator != nil {
		resp.Peers = a.negotiator.Peers()
		stats := a.negotiator.Stats()
		resp.RTP = &stats
	}
	writeJSON(w, resp)
}

// handleKinds lists the message catalog so clients can check their tokens.
func handleKinds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	kinds := protocol.Kinds()
	out := make([]kindResponse, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, kindResponse{Type: k.String(), Typed: protocol.HasTypedPayload(k)})
	}
	writeJSON(w, out)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
