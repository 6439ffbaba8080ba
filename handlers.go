package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/store"
	"staffDirectoryViewer/internal/utils"
	"staffDirectoryViewer/internal/viewer"

	"github.com/gorilla/mux"
)

// viewerFor returns the component of the request's session. A component
// seen for the first time is mounted, that is loaded once. A failed mount is
// still answered with its error, but the component is forgotten so the next
// request of the session mounts a fresh one.
func (app *App) viewerFor(r *http.Request) *viewer.Component {
	sessionID, _ := utils.GetSessionID(r)
	component, created := app.Viewers.Get(sessionID)
	if created {
		ctx, cancel := app.remoteContext(r)
		defer cancel()
		if err := component.Load(ctx); err != nil {
			utils.AppLogger.WithError(err).WithField("session_id", sessionID).Warn("Initial load failed")
			app.Viewers.Forget(sessionID)
		}
	}
	return component
}

// remoteContext bounds a store call by RemoteTimeout only. Remote calls run
// to completion or failure even when the client goes away.
func (app *App) remoteContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), app.Config.RemoteTimeout)
}

// statusFor maps component and store errors to HTTP status codes.
func statusFor(err error) int {
	var unknownField *models.UnknownFieldError
	var invalid *ValidationError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, viewer.ErrEditInProgress), errors.Is(err, viewer.ErrBusy), errors.Is(err, viewer.ErrNotEditing):
		return http.StatusConflict
	case errors.Is(err, viewer.ErrUnknownColumn), errors.As(err, &unknownField), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, viewer.ErrUnknownRecord), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respond answers a request on the staff table. JSON callers get the state
// snapshot or the error. Browsers are redirected back to the table after a
// successful action, and get the table with the error otherwise.
func (app *App) respond(w http.ResponseWriter, r *http.Request, component *viewer.Component, actionErr error) {
	status := statusFor(actionErr)

	if wantsJSON(r) {
		if actionErr != nil {
			utils.RespondWithError(w, status, actionErr.Error())
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, viewer.Describe(component.State()))
		return
	}

	if actionErr == nil && r.Method == http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	page := app.BuildStaffPage(r, component.State(), actionErr)
	if err := app.Templates.RenderTemplate(w, status, "staff", page); err != nil {
		utils.AppLogger.WithError(err).Error("Failed to render staff page")
		utils.InternalServerError(w, "Failed to render page")
	}
}

func (app *App) handleList(w http.ResponseWriter, r *http.Request) {
	app.respond(w, r, app.viewerFor(r), nil)
}

func (app *App) handleSort(w http.ResponseWriter, r *http.Request) {
	component := app.viewerFor(r)

	column, err := viewer.ParseColumn(mux.Vars(r)["column"])
	if err == nil {
		err = component.Sort(column)
	}
	app.respond(w, r, component, err)
}

func (app *App) handleEdit(w http.ResponseWriter, r *http.Request) {
	component := app.viewerFor(r)

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		app.respond(w, r, component, &ValidationError{Message: "Invalid record id"})
		return
	}
	app.respond(w, r, component, component.BeginEdit(id))
}

// handleSave copies the submitted fields into the edit session and saves it.
// Fields that were not submitted keep their working value.
func (app *App) handleSave(w http.ResponseWriter, r *http.Request) {
	component := app.viewerFor(r)

	values, err := readFields(r)
	if err == nil {
		err = ValidateStaffFields(values)
	}
	if err != nil {
		app.respond(w, r, component, err)
		return
	}

	for _, field := range models.EditableFields {
		value, ok := values[field]
		if !ok {
			continue
		}
		if err := component.ChangeField(field, value); err != nil {
			app.respond(w, r, component, err)
			return
		}
	}

	ctx, cancel := app.remoteContext(r)
	defer cancel()
	app.respond(w, r, component, component.Save(ctx))
}

// readFields reads the edit form from a JSON object or a form post. Values
// are trimmed; the CSRF token is not a field.
func readFields(r *http.Request) (map[models.Field]string, error) {
	raw := map[string]string{}

	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, &ValidationError{Message: "Invalid JSON body"}
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, &ValidationError{Message: "Invalid form body"}
		}
		for key := range r.PostForm {
			raw[key] = r.PostForm.Get(key)
		}
		delete(raw, "csrf_token")
	}

	values := make(map[models.Field]string, len(raw))
	for key, value := range raw {
		field := models.Field(key)
		if _, err := (models.DisplayRecord{}).Get(field); err != nil {
			return nil, err
		}
		values[field] = SanitizeInput(value)
	}
	return values, nil
}

func (app *App) handleCancel(w http.ResponseWriter, r *http.Request) {
	component := app.viewerFor(r)
	app.respond(w, r, component, component.Cancel())
}

// handleReload loads the list again. A new session is loaded only once.
func (app *App) handleReload(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := utils.GetSessionID(r)
	component, _ := app.Viewers.Get(sessionID)

	ctx, cancel := app.remoteContext(r)
	defer cancel()
	app.respond(w, r, component, component.Load(ctx))
}

func (app *App) handleAPIStaff(w http.ResponseWriter, r *http.Request) {
	component := app.viewerFor(r)
	utils.RespondWithJSON(w, http.StatusOK, viewer.Describe(component.State()))
}

func (app *App) handleAPIAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			utils.BadRequestError(w, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	entries, err := app.Audit.Recent(r.Context(), limit)
	if err != nil {
		utils.AppLogger.WithError(err).Error("Failed to read audit log")
		utils.InternalServerError(w, "Failed to read audit log")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entries)
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := app.DB.PingContext(r.Context()); err != nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"viewers": app.Viewers.Size(),
	})
}
