package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"multitool/internal/ledger"
	"multitool/internal/registry"
	"multitool/internal/tools"
	"multitool/internal/upload"
)

// multipartMemory caps how much of the form is buffered in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// Dispatch routes POST /api/{category}/{operation} to the registered tool.
// Every outcome is reported in the shared envelope shape; tool failures that
// are not the client's fault come back as 200 with success=false.
func (a *App) Dispatch(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	operation := chi.URLParam(r, "operation")

	desc, err := a.Registry.Lookup(category, operation)
	if err != nil {
		a.fail(w, http.StatusNotFound, fmt.Sprintf("unknown operation %s/%s", category, operation))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.fail(w, http.StatusRequestEntityTooLarge, "uploaded file exceeds the size limit")
			return
		}
		a.fail(w, http.StatusBadRequest, "request must be multipart/form-data with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	files := formFiles(r)
	minFiles, maxFiles := desc.FileBounds()
	if len(files) < minFiles || len(files) > maxFiles {
		a.fail(w, http.StatusBadRequest, fileCountMessage(minFiles, maxFiles, len(files)))
		return
	}

	params, err := desc.Coerce(url.Values(r.MultipartForm.Value))
	if err != nil {
		a.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	inputs := make([]string, 0, len(files))
	defer func() {
		for _, path := range inputs {
			a.Uploads.Remove(path)
		}
	}()
	for _, fh := range files {
		path, err := a.Uploads.SaveAny(fh, desc.AcceptedCategories())
		if err != nil {
			a.uploadError(w, fh, err)
			return
		}
		inputs = append(inputs, path)
	}

	started := time.Now()
	result, execErr := desc.Execute(r.Context(), inputs, params)
	a.record(r.Context(), desc, result, execErr, time.Since(started))

	if execErr != nil {
		var procErr *tools.ProcessingError
		var paramErr *tools.InvalidParamError
		switch {
		case errors.As(execErr, &procErr):
			a.writeJSON(w, http.StatusOK, envelope{Success: false, Message: procErr.Message})
		case errors.As(execErr, &paramErr):
			a.fail(w, http.StatusBadRequest, paramErr.Reason)
		default:
			a.Log.Error().Err(execErr).
				Str("category", string(desc.Category)).
				Str("operation", desc.Operation).
				Msg("operation failed")
			a.fail(w, http.StatusInternalServerError, "internal error processing request")
		}
		return
	}

	a.ok(w, result.Message, result.OutputURL(), result.Metadata)
}

func (a *App) uploadError(w http.ResponseWriter, fh *multipart.FileHeader, err error) {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		a.fail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds the size limit", fh.Filename))
	case errors.Is(err, upload.ErrEmptyUpload):
		a.fail(w, http.StatusBadRequest, fmt.Sprintf("%s is empty", fh.Filename))
	case errors.Is(err, upload.ErrUnsupportedType):
		a.fail(w, http.StatusBadRequest, fmt.Sprintf("%s is not a supported file type for this operation", fh.Filename))
	default:
		a.Log.Error().Err(err).Str("filename", fh.Filename).Msg("store upload")
		a.fail(w, http.StatusInternalServerError, "internal error storing upload")
	}
}

// record writes the operation outcome to the ledger when one is configured.
// Ledger failures are logged and otherwise ignored.
func (a *App) record(ctx context.Context, desc *registry.Descriptor, result *tools.Result, execErr error, elapsed time.Duration) {
	if a.Ledger == nil {
		return
	}
	entry := ledger.Entry{
		Category:   string(desc.Category),
		Operation:  desc.Operation,
		Success:    execErr == nil,
		DurationMS: elapsed.Milliseconds(),
	}
	if execErr == nil {
		entry.Message = result.Message
		entry.ArtifactCount = len(result.Artifacts)
	} else {
		entry.Message = execErr.Error()
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := a.Ledger.Record(recordCtx, entry); err != nil {
		a.Log.Warn().Err(err).Msg("record operation")
	}
}

// formFiles gathers uploads from the "file" field first, then "files", so
// single-file and multi-file clients both work.
func formFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := append([]*multipart.FileHeader{}, r.MultipartForm.File["file"]...)
	return append(files, r.MultipartForm.File["files"]...)
}

func fileCountMessage(min, max, got int) string {
	if min == max {
		if min == 1 {
			return "exactly one file must be uploaded"
		}
		return fmt.Sprintf("exactly %d files must be uploaded, got %d", min, got)
	}
	return fmt.Sprintf("between %d and %d files must be uploaded, got %d", min, max, got)
}
