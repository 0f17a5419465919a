package router

import (
	"github.com/chatdesk/backend/internal/interfaces/http/handler"
)

// ContactRoutes exposes contact identity resolution under /contacts
func ContactRoutes(h *handler.ContactHandler) Module {
	return Module{
		Prefix: "/contacts",
		Routes: []Route{
			post("/resolve", h.Resolve),
			post("/merge", h.Merge),
			post("/backfill-linked", h.BackfillLinked),
			get("/:id", h.GetByID),
			get("/:id/outbound-address", h.OutboundAddress),
		},
	}
}

// SystemRoutes exposes service information under /system
func SystemRoutes(h *handler.SystemHandler) Module {
	return Module{
		Prefix: "/system",
		Routes: []Route{
			get("/info", h.GetSystemInfo),
			get("/ping", h.Ping),
		},
	}
}
