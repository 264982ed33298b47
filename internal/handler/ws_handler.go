/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
resolving the handshake to an authenticated member identity, upgrading the HTTP connection
to WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"kindred/internal/app/chat"
	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/limiter"
	"kindred/internal/pkg/logx"
	"kindred/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The handshake must carry a valid session token; a connection that cannot be
// resolved to a member identity is rejected with a bare 401 before the upgrade.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		identity, err := deps.Bridge.Resolve(r)
		if err != nil {
			// No error body on purpose. An unauthenticated probe learns nothing
			// beyond the status code.
			logx.Warn("WebSocket connection rejected: Unresolved identity.", "ip", ip)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		logx.Info("Attempting to upgrade connection", "member_id", identity.MemberID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, conn, identity)

		go client.WritePump()

		deps.Hub.Register(client)

		logx.Info("WebSocket connection established and client registered", "member_id", identity.MemberID)

		client.ReadPump()
	}
}
