// Package viewer holds the staff list presentation state: the loaded records,
// their sort order and the single edit session, and the transitions between
// loading, viewing and editing.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"staffDirectoryViewer/internal/mapper"
	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/store"
	"staffDirectoryViewer/internal/utils"
)

var (
	ErrBusy           = errors.New("a remote operation is in progress")
	ErrEditInProgress = errors.New("another record is being edited")
	ErrNotEditing     = errors.New("no record is being edited")
	ErrUnknownRecord  = errors.New("record not in the displayed list")
	ErrUnknownColumn  = errors.New("unknown column")
)

// Component is the list/edit state machine for one viewer. Remote calls run
// without holding the lock, so State can be read while they are pending.
type Component struct {
	remote       store.RemoteStore
	listName     string
	partitionURL string
	observe      func(from, to Phase)

	mu    sync.Mutex
	state State
	// busy is set while a fetch or update is in flight.
	busy bool
}

// Option configures a Component.
type Option func(*Component)

// WithObserver registers fn to be called on every state transition. fn runs
// with the component locked and must not call back into it.
func WithObserver(fn func(from, to Phase)) Option {
	return func(c *Component) {
		c.observe = fn
	}
}

// NewComponent returns a component in the Loading state with no records. Call
// Load to mount it.
func NewComponent(remote store.RemoteStore, listName, partitionURL string, opts ...Option) *Component {
	c := &Component{
		remote:       remote,
		listName:     listName,
		partitionURL: partitionURL,
		state:        Loading{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state. Its record slices are shared and must not
// be modified.
func (c *Component) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Component) setState(next State) {
	from := c.state.Phase()
	c.state = next
	if c.observe != nil {
		c.observe(from, next.Phase())
	}
}

// Load fetches the list and replaces the displayed records. The sort order
// resets to the store's order. On failure the previous records stay on
// screen and the error is kept in the Viewing state; it is also returned.
func (c *Component) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if _, editing := c.state.(Editing); editing {
		c.mu.Unlock()
		return ErrEditInProgress
	}
	records, sortState := recordsOf(c.state)
	c.busy = true
	c.setState(Loading{Records: records, Sort: sortState})
	c.mu.Unlock()

	fresh, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.setState(Viewing{Records: records, Sort: sortState, Err: err})
		return err
	}
	c.setState(Viewing{Records: fresh})
	return nil
}

func (c *Component) fetch(ctx context.Context) ([]models.DisplayRecord, error) {
	rows, err := c.remote.FetchAll(ctx, c.listName)
	if err != nil {
		err = remoteError(err)
		utils.AppLogger.WithError(err).WithField("list", c.listName).Warn("Failed to load list items")
		return nil, err
	}

	utils.AppLogger.WithFields(map[string]interface{}{
		"list":  c.listName,
		"items": rows,
	}).Debug("Fetched list items")

	records := uniqueByID(mapper.ToDisplay(rows, c.partitionURL))

	utils.AppLogger.WithFields(map[string]interface{}{
		"list":      c.listName,
		"partition": c.partitionURL,
		"fetched":   len(rows),
		"displayed": len(records),
	}).Debug("Filtered list items")
	return records, nil
}

// uniqueByID drops repeated ids, keeping the first occurrence.
func uniqueByID(records []models.DisplayRecord) []models.DisplayRecord {
	seen := make(map[int]bool, len(records))
	unique := records[:0:0]
	for _, r := range records {
		if seen[r.ID] {
			utils.AppLogger.WithField("item_id", r.ID).Warn("Dropping duplicate list item")
			continue
		}
		seen[r.ID] = true
		unique = append(unique, r)
	}
	return unique
}

// remoteError keeps errors inside the store taxonomy.
func remoteError(err error) error {
	if errors.Is(err, store.ErrRemoteUnavailable) || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrRemoteUnavailable, err)
}

// Sort reorders the displayed records by column. It never calls the store.
func (c *Component) Sort(column Column) error {
	if _, ok := accessors[column]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, string(column))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch s := c.state.(type) {
	case Viewing:
		next := s.Sort.Next(column)
		c.setState(Viewing{Records: sortRecords(s.Records, next), Sort: next, Err: s.Err})
		return nil
	case Editing:
		return ErrEditInProgress
	default:
		return ErrBusy
	}
}

// BeginEdit opens the edit dialog on a copy of the record with the given id.
// Only one record can be edited at a time; a second BeginEdit is rejected
// with ErrEditInProgress until the first session is saved or cancelled.
func (c *Component) BeginEdit(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch s := c.state.(type) {
	case Viewing:
		for _, r := range s.Records {
			if r.ID == id {
				c.setState(Editing{
					Records: s.Records,
					Sort:    s.Sort,
					Session: EditSession{Original: r, Working: r, Open: true},
				})
				return nil
			}
		}
		return fmt.Errorf("%w: %d", ErrUnknownRecord, id)
	case Editing:
		return ErrEditInProgress
	default:
		return ErrBusy
	}
}

// ChangeField replaces one field of the working copy. The displayed records
// are not touched.
func (c *Component) ChangeField(field models.Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch s := c.state.(type) {
	case Editing:
		working, err := s.Session.Working.With(field, value)
		if err != nil {
			return err
		}
		session := s.Session
		session.Working = working
		c.setState(Editing{Records: s.Records, Sort: s.Sort, Session: session, Err: s.Err})
		return nil
	case Loading:
		return ErrBusy
	default:
		return ErrNotEditing
	}
}

// Cancel discards the edit session without calling the store. While a save
// is pending it only closes the dialog; the save still runs to completion.
func (c *Component) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch s := c.state.(type) {
	case Editing:
		c.setState(Viewing{Records: s.Records, Sort: s.Sort})
		return nil
	case Loading:
		if s.Saving == nil {
			return ErrBusy
		}
		dismissed := *s.Saving
		dismissed.Open = false
		c.setState(Loading{Records: s.Records, Sort: s.Sort, Saving: &dismissed})
		return nil
	default:
		return ErrNotEditing
	}
}

// Save writes the working copy back to the store and reloads the list. If
// the update fails the session is restored with the error so no typed input
// is lost; if the dialog was dismissed meanwhile the error is shown on the
// table instead.
func (c *Component) Save(ctx context.Context) error {
	c.mu.Lock()
	editing, ok := c.state.(Editing)
	if !ok {
		_, loading := c.state.(Loading)
		c.mu.Unlock()
		if loading {
			return ErrBusy
		}
		return ErrNotEditing
	}
	session := editing.Session
	c.busy = true
	c.setState(Loading{Records: editing.Records, Sort: editing.Sort, Saving: &session})
	c.mu.Unlock()

	working := session.Working
	if err := c.remote.UpdateByID(ctx, c.listName, working.ID, mapper.ToRemotePatch(working)); err != nil {
		err = remoteError(err)
		utils.AppLogger.WithError(err).WithFields(map[string]interface{}{
			"list":    c.listName,
			"item_id": working.ID,
		}).Warn("Failed to save list item")

		c.mu.Lock()
		defer c.mu.Unlock()
		c.busy = false
		pending := session
		if loading, ok := c.state.(Loading); ok && loading.Saving != nil {
			pending = *loading.Saving
		}
		if pending.Open {
			c.setState(Editing{Records: editing.Records, Sort: editing.Sort, Session: pending, Err: err})
		} else {
			c.setState(Viewing{Records: editing.Records, Sort: editing.Sort, Err: err})
		}
		return err
	}

	utils.AppLogger.WithFields(map[string]interface{}{
		"list":    c.listName,
		"item_id": working.ID,
	}).Info("Saved list item")

	fresh, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.setState(Viewing{Records: editing.Records, Sort: editing.Sort, Err: err})
		return err
	}
	c.setState(Viewing{Records: fresh})
	return nil
}
