/*
Package handler provides HTTP handler functions for profile image uploads.

Uploads normally go browser-to-bucket through presigned URLs; the server
validates the declared file, signs a scoped key, and records the key on the
member once the client confirms the upload. A direct upload route accepts the
raw bytes server-side for clients that cannot complete the presigned flow.
*/
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"kindred/internal/app/member"
	"kindred/internal/app/storage"
	"kindred/internal/pkg/auth/jwt"
	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/logx"
	"kindred/internal/pkg/req"
	"kindred/internal/pkg/resp"
)

// PresignAvatarInput defines the JSON input structure for generating an avatar upload URL.
type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// avatarKeyPrefix returns the object key prefix a member may write under.
func avatarKeyPrefix(memberID string) string {
	return fmt.Sprintf("avatars/%s/", memberID)
}

// HandlePresignAvatarURL generates a time-limited, pre-signed URL for uploading
// a profile image, scoped to the caller's own key prefix.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateImageSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateImageType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		fileKey := avatarKeyPrefix(identity.ID) + uuid.New().String() + fileExt

		url, err := deps.Storage.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)

		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// SetAvatarInput defines the JSON input structure for recording an uploaded avatar.
type SetAvatarInput struct {
	FileKey string `json:"fileKey"`
}

// HandleSetAvatar records the uploaded avatar key on the caller's member record
// and deletes the previously stored object, if any.
func HandleSetAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input SetAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		// A member may only point its avatar at its own key prefix.
		if !strings.HasPrefix(input.FileKey, avatarKeyPrefix(identity.ID)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := recordAvatar(deps, r, identity.ID, input.FileKey); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"avatarKey": input.FileKey,
		})
	}
}

// HandleUploadAvatar accepts the raw image bytes server-side, streams them to
// the bucket, and records the key on the caller's member record in one step.
// This is the fallback for clients that cannot complete the presigned
// browser-to-bucket flow.
func HandleUploadAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileName := r.URL.Query().Get("filename")
		mimeType := strings.ToLower(r.Header.Get("Content-Type"))

		if customErr := storage.ValidateImageType(fileName, mimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, storage.MaxImageSize))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileSizeTooLarge))
			return
		}

		if customErr := storage.ValidateImageSize(int64(len(body))); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(fileName))
		fileKey := avatarKeyPrefix(identity.ID) + uuid.New().String() + fileExt

		if err := deps.Storage.Upload(r.Context(), fileKey, mimeType, body); err != nil {
			logx.Error(err, "upload_avatar: object write failed", "member_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		if customErr := recordAvatar(deps, r, identity.ID, fileKey); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"avatarKey": fileKey,
		})
	}
}

// recordAvatar stores the new avatar key on the member and deletes the
// previously stored object in the background, if any.
func recordAvatar(deps *AppDeps, r *http.Request, memberID, fileKey string) *errs.CustomError {
	current, err := deps.Members.FindByID(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return errs.NewError(errs.ErrUnauthorized)
		}
		logx.Error(err, "set_avatar: caller lookup failed", "member_id", memberID)
		return errs.NewError(errs.ErrUnknown)
	}

	if err := deps.Members.SetAvatar(r.Context(), memberID, fileKey); err != nil {
		logx.Error(err, "set_avatar: store update failed", "member_id", memberID)
		return errs.NewError(errs.ErrUnknown)
	}

	oldKey := current.AvatarKey
	if oldKey != "" && oldKey != fileKey {
		go func(k string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = deps.Storage.Delete(ctx, k)
		}(oldKey)
	}

	return nil
}

// HandleAvatarDownload redirects to a presigned download URL for the given avatar key.
func HandleAvatarDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" || !strings.HasPrefix(fileKey, "avatars/") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), fileKey, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
