package viewer

import "staffDirectoryViewer/internal/models"

// Phase names the kind of a State.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseViewing Phase = "viewing"
	PhaseEditing Phase = "editing"
)

// State is one of Loading, Viewing or Editing. A component replaces its state
// as a whole on every transition; values are never modified in place.
type State interface {
	Phase() Phase
}

// EditSession is the working copy of the one record being edited.
type EditSession struct {
	Original models.DisplayRecord `json:"original"`
	Working  models.DisplayRecord `json:"working"`
	// Open is false once the user dismissed the dialog while a save was pending.
	Open bool `json:"open"`
}

// Loading is shown while the list is fetched, or while a save is written
// back. Records are the last good records, kept on screen meanwhile.
type Loading struct {
	Records []models.DisplayRecord
	Sort    SortState
	// Saving is the session being committed, nil for a plain (re)load.
	Saving *EditSession
}

// Viewing is the table at rest. Err is the failure of the last remote call, if any.
type Viewing struct {
	Records []models.DisplayRecord
	Sort    SortState
	Err     error
}

// Editing is the table with the edit dialog open. Err is set after a failed save.
type Editing struct {
	Records []models.DisplayRecord
	Sort    SortState
	Session EditSession
	Err     error
}

func (Loading) Phase() Phase { return PhaseLoading }
func (Viewing) Phase() Phase { return PhaseViewing }
func (Editing) Phase() Phase { return PhaseEditing }

// Snapshot is a flat, serializable view of a State.
type Snapshot struct {
	Phase   Phase                  `json:"phase"`
	Records []models.DisplayRecord `json:"records"`
	Sort    SortState              `json:"sort"`
	Session *EditSession           `json:"session,omitempty"`
	Saving  bool                   `json:"saving,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Describe flattens a state for rendering.
func Describe(state State) Snapshot {
	snap := Snapshot{Phase: state.Phase(), Records: []models.DisplayRecord{}}

	switch s := state.(type) {
	case Loading:
		snap.Records = append(snap.Records, s.Records...)
		snap.Sort = s.Sort
		if s.Saving != nil {
			session := *s.Saving
			snap.Session = &session
			snap.Saving = true
		}
	case Viewing:
		snap.Records = append(snap.Records, s.Records...)
		snap.Sort = s.Sort
		snap.Error = errorText(s.Err)
	case Editing:
		snap.Records = append(snap.Records, s.Records...)
		snap.Sort = s.Sort
		session := s.Session
		snap.Session = &session
		snap.Error = errorText(s.Err)
	}
	return snap
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func recordsOf(state State) ([]models.DisplayRecord, SortState) {
	switch s := state.(type) {
	case Loading:
		return s.Records, s.Sort
	case Viewing:
		return s.Records, s.Sort
	case Editing:
		return s.Records, s.Sort
	}
	return nil, SortState{}
}
