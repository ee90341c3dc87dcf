package api

import "net/http"

// NewRouter wires the REST and WebSocket endpoints onto a ServeMux.
// hub may be nil when the WebSocket surface is disabled.
func NewRouter(sync *SyncHandler, pipeline *PipelineHandler, hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", sync.Health)
	mux.HandleFunc("/api/mutations", sync.EnqueueMutation)
	mux.HandleFunc("/api/sync/status", sync.GetSyncStatus)
	mux.HandleFunc("/api/sync/now", sync.TriggerSync)
	mux.HandleFunc("/api/sync/queue", sync.GetQueue)
	mux.HandleFunc("/api/pipeline/staleness", pipeline.ClassifyStaleness)

	if hub != nil {
		mux.HandleFunc("/ws", hub.HandleWebSocket)
	}

	return mux
}
