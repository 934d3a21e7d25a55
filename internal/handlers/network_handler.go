package handlers

import (
	"log"
	"net/http"

	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/services"
)

// NetworkHandler receives decoded card-network messages. Declines are answered with 200
// and the outcome; only malformed or unprocessable messages are HTTP errors.
type NetworkHandler struct {
	network *services.NetworkMessageService
}

func NewNetworkHandler(network *services.NetworkMessageService) *NetworkHandler {
	return &NetworkHandler{network: network}
}

// ProcessNetworkMessage only touches cards of the authenticated business
func (h *NetworkHandler) ProcessNetworkMessage(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}

	var msg models.NetworkCommon
	if err := decodeJSON(w, r, &msg); err != nil {
		log.Printf("[NETWORK] Decode error: %v", err)
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	result, err := h.network.ProcessBusinessNetworkMessage(r.Context(), businessID, &msg)
	if err != nil {
		writeError(w, "NETWORK", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
