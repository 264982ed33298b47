/*
Package handler provides HTTP handler functions for browsing members and
reading relationship state.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kindred/internal/app/member"
	"kindred/internal/pkg/auth/jwt"
	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/logx"
	"kindred/internal/pkg/resp"
)

// publicMember strips credential fields from a member record for API responses.
func publicMember(m member.Member) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"name":      m.Name,
		"email":     m.Email,
		"age":       m.Age,
		"avatarKey": m.AvatarKey,
	}
}

func publicMembers(members []member.Member) []map[string]any {
	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		out = append(out, publicMember(m))
	}
	return out
}

// HandleListMembers returns every member except the caller, for the member
// discovery page.
func HandleListMembers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		members, err := deps.Members.ListOtherThan(r.Context(), identity.ID)
		if err != nil {
			logx.Error(err, "list_members: store query failed", "member_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"members": publicMembers(members),
		})
	}
}

// HandleGetMember returns one member's profile together with the caller's
// relationship to them, which decides the action the profile page offers
// (start chat, accept request, or send request).
func HandleGetMember(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		otherID := chi.URLParam(r, "id")

		other, err := deps.Members.FindByID(r.Context(), otherID)
		if err != nil {
			if errors.Is(err, member.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMemberNotFound))
				return
			}
			logx.Error(err, "get_member: store query failed", "other_id", otherID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		self, err := deps.Members.FindByID(r.Context(), identity.ID)
		if err != nil {
			logx.Error(err, "get_member: caller lookup failed", "member_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		data := publicMember(other)
		data["relationship"] = deps.Graph.Relationship(self, other.ID)

		resp.RespondSuccess(w, r, map[string]any{
			"member": data,
		})
	}
}
