package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helloakshay27/hi-society-assets/internal/attach"
	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/notify"
	"github.com/helloakshay27/hi-society-assets/internal/types"
)

// maxUploadBytes caps one queue request's in-memory form parse.
const maxUploadBytes = 32 << 20

// bucketSuffixes maps the public bucket names to their key suffixes.
var bucketSuffixes = map[string]string{
	"asset_image":          attach.SuffixAssetImage,
	"asset_manuals":        attach.SuffixManualsUpload,
	"asset_insurances":     attach.SuffixInsuranceDetails,
	"asset_purchases":      attach.SuffixPurchaseInvoice,
	"asset_other_uploads":  attach.SuffixOtherDocuments,
	"amc_documents":        attach.SuffixAmcDocuments,
	"category_attachments": attach.SuffixCategoryUploads,
}

// QueueAttachment accepts multipart files and queues them for the next
// submission. Images are re-encoded at reduced quality; everything else
// queues as-is.
// POST /v1/forms/{sessionID}/attachments/{bucket}
func (h *FormHandler) QueueAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	suffix, ok := bucketSuffixes[chi.URLParam(r, "bucket")]
	if !ok {
		writeError(w, http.StatusBadRequest, "UNKNOWN_BUCKET",
			fmt.Sprintf("unknown attachment bucket %q", chi.URLParam(r, "bucket")))
		return
	}
	set := h.uploadSet(sess.ID)
	if set == nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session")
		return
	}

	var cat category.Category
	var assetID int
	_ = sess.With(func(s *types.FormState) error {
		cat = category.Category(s.Category)
		assetID = s.AssetID
		return nil
	})
	bucket := attach.BucketKey(cat, suffix)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_MULTIPART", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	var queued []attach.PendingFile
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
				return
			}
			pf := attach.CompressImage(attach.NewPendingFile(
				fh.Filename, fh.Header.Get("Content-Type"), data))
			set.Add(bucket, pf)
			queued = append(queued, pf)
		}
	}
	if len(queued) == 0 {
		writeError(w, http.StatusBadRequest, "NO_FILES", "no files in request")
		return
	}

	h.publish(sess.ID, notify.Event{
		Type: notify.EventAttachmentQueued, AssetID: assetID,
		Message: fmt.Sprintf("%d file(s) queued in %s", len(queued), bucket),
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"bucket": bucket,
		"files":  queued,
	})
}

// ListAttachments returns the queued files of one bucket.
// GET /v1/forms/{sessionID}/attachments/{bucket}
func (h *FormHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	suffix, ok := bucketSuffixes[chi.URLParam(r, "bucket")]
	if !ok {
		writeError(w, http.StatusBadRequest, "UNKNOWN_BUCKET",
			fmt.Sprintf("unknown attachment bucket %q", chi.URLParam(r, "bucket")))
		return
	}
	set := h.uploadSet(sess.ID)
	if set == nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session")
		return
	}
	var cat category.Category
	_ = sess.With(func(s *types.FormState) error {
		cat = category.Category(s.Category)
		return nil
	})
	files := set.Files(attach.BucketKey(cat, suffix))
	if files == nil {
		files = []attach.PendingFile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// RemoveAttachment drops one queued file by handle id.
// DELETE /v1/forms/{sessionID}/attachments/{bucket}/{fileID}
func (h *FormHandler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	suffix, ok := bucketSuffixes[chi.URLParam(r, "bucket")]
	if !ok {
		writeError(w, http.StatusBadRequest, "UNKNOWN_BUCKET",
			fmt.Sprintf("unknown attachment bucket %q", chi.URLParam(r, "bucket")))
		return
	}
	set := h.uploadSet(sess.ID)
	if set == nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session")
		return
	}
	var cat category.Category
	_ = sess.With(func(s *types.FormState) error {
		cat = category.Category(s.Category)
		return nil
	})
	if !set.Remove(attach.BucketKey(cat, suffix), chi.URLParam(r, "fileID")) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no queued file with that id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadAttachment proxies one persisted upstream attachment.
// GET /v1/attachments/{id}/download
func (h *FormHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid attachment id")
		return
	}
	data, contentType, err := h.upstream.DownloadAttachment(r.Context(), id)
	if err != nil {
		apiErrorToHTTP(w, err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Client went away mid-transfer; nothing to recover.
		return
	}
}
