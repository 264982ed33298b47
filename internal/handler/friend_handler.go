/*
Package handler provides HTTP handler functions for the friend-request
handshake and relationship lists.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kindred/internal/pkg/auth/jwt"
	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/resp"
)

// HandleListFriends returns the caller's friends resolved to member records.
func HandleListFriends(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		friends, customErr := deps.Graph.Friends(r.Context(), identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"friends": publicMembers(friends),
		})
	}
}

// HandleListRequests returns the members who sent the caller a pending friend request.
func HandleListRequests(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		senders, customErr := deps.Graph.ReceivedRequests(r.Context(), identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"requests": publicMembers(senders),
		})
	}
}

// HandleSendRequest records a friend request from the caller to the member in
// the URL. Re-sending an already pending request succeeds silently.
func HandleSendRequest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		receiverID := chi.URLParam(r, "id")
		if receiverID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := deps.Graph.SendRequest(r.Context(), identity.ID, receiverID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"message": "Friend request sent successfully.",
		})
	}
}

// HandleAcceptRequest establishes a friendship between the caller and the
// member in the URL and clears the pending request pair.
func HandleAcceptRequest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		senderID := chi.URLParam(r, "id")
		if senderID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := deps.Graph.AcceptRequest(r.Context(), identity.ID, senderID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"message": "Friend request accepted!",
		})
	}
}
