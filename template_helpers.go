package main

import (
	"bytes"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/utils"
	"staffDirectoryViewer/internal/viewer"
)

// TemplateCache holds parsed templates with inheritance support
type TemplateCache struct {
	dir       string
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateCache creates a template cache reading from dir
func NewTemplateCache(dir string) *TemplateCache {
	return &TemplateCache{
		dir:       dir,
		templates: make(map[string]*template.Template),
	}
}

// GetTemplate returns a cached template or loads it if not cached
func (tc *TemplateCache) GetTemplate(name string) (*template.Template, error) {
	tc.mutex.RLock()
	tmpl, exists := tc.templates[name]
	tc.mutex.RUnlock()

	if exists {
		return tmpl, nil
	}

	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	// Double-check after acquiring write lock
	if tmpl, exists := tc.templates[name]; exists {
		return tmpl, nil
	}

	templatePath := filepath.Join(tc.dir, name+".html")
	basePath := filepath.Join(tc.dir, "base.html")

	tmpl, err := template.New("").Funcs(CreateTemplateFuncMap()).ParseFiles(basePath, templatePath)
	if err != nil {
		utils.AppLogger.WithError(err).WithField("template", name).Error("Failed to parse template")
		return nil, err
	}

	tc.templates[name] = tmpl
	return tmpl, nil
}

// RenderTemplate renders a template with the given data. The page is
// rendered into a buffer first so a template error still yields a clean 500.
func (tc *TemplateCache) RenderTemplate(w http.ResponseWriter, status int, name string, data interface{}) error {
	tmpl, err := tc.GetTemplate(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// ConditionalClass adds a CSS class conditionally
func ConditionalClass(baseClass, conditionalClass string, condition bool) string {
	if condition {
		return baseClass + " " + conditionalClass
	}
	return baseClass
}

// SortIndicator is the arrow shown next to the active column header.
func SortIndicator(state viewer.SortState, column viewer.Column) string {
	if state.Column != column {
		return ""
	}
	if state.Descending {
		return "▼"
	}
	return "▲"
}

// FieldValue reads one field of a record for the edit form.
func FieldValue(record models.DisplayRecord, field models.Field) string {
	value, _ := record.Get(field)
	return value
}

func isOdd(i int) bool {
	return i%2 == 1
}

// CreateTemplateFuncMap creates a function map for templates
func CreateTemplateFuncMap() template.FuncMap {
	return template.FuncMap{
		"conditionalClass": ConditionalClass,
		"sortIndicator":    SortIndicator,
		"fieldValue":       FieldValue,
		"odd":              isOdd,
	}
}

// StaffPage is the data of the staff table page.
type StaffPage struct {
	Title      string
	ListName   string
	ModalTitle string
	Columns    []viewer.ColumnInfo
	Fields     []models.Field
	Snapshot   viewer.Snapshot
	CSRFToken  string
	// ActionError is the failure of the request being answered, if it is not
	// already part of the component state.
	ActionError string
}

// BuildStaffPage assembles the page for the component of the current request.
func (app *App) BuildStaffPage(r *http.Request, state viewer.State, actionErr error) *StaffPage {
	csrfToken, _ := utils.GetCSRFToken(r)

	page := &StaffPage{
		Title:      app.Config.ListName,
		ListName:   app.Config.ListName,
		ModalTitle: "Edit ADRA Staff Member",
		Columns:    viewer.Columns,
		Fields:     models.EditableFields,
		Snapshot:   viewer.Describe(state),
		CSRFToken:  csrfToken,
	}
	if actionErr != nil && actionErr.Error() != page.Snapshot.Error {
		page.ActionError = actionErr.Error()
	}
	return page
}
