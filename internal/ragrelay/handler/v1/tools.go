package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service"
	"github.com/kiosk404/ragrelay/pkg/core"
)

// ToolHandler serves GET /v1/tools.
type ToolHandler struct {
	svc service.ChatService
}

func NewToolHandler(svc service.ChatService) *ToolHandler {
	return &ToolHandler{svc: svc}
}

// List returns the registered tools in registration order.
func (h *ToolHandler) List(c *gin.Context) {
	descs := h.svc.Tools()
	resp := make([]ToolResponse, 0, len(descs))
	for _, d := range descs {
		resp = append(resp, toToolResponse(d))
	}
	core.WriteResponse(c, nil, gin.H{"data": resp})
}
