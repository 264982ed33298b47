package handler

import (
	"kindred/internal/app/chat"
	"kindred/internal/app/member"
	"kindred/internal/app/session"
	"kindred/internal/app/storage"
	"kindred/internal/configs"
)

// AppDeps bundles the collaborators every handler may need.
type AppDeps struct {
	Hub     *chat.Hub
	Graph   *member.Graph
	Members member.Store
	Bridge  *session.Bridge
	Storage storage.Service
	Config  *configs.AppConfig
}
