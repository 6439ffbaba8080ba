package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"staffDirectoryViewer/internal/mapper"
	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listName = "ADRA Staff"
	hqURL    = "https://adra.sharepoint.com/network/afro"
)

type updateCall struct {
	list  string
	id    int
	patch models.RemotePatch
}

// fakeStore is an in-memory list. Failures and blocking are injected per call.
type fakeStore struct {
	mu         sync.Mutex
	rows       []models.RemoteRow
	fetchErr   error
	updateErr  error
	fetches    int
	updates    []updateCall
	blockSave  chan struct{}
	saveEnters chan struct{}
}

func (f *fakeStore) FetchAll(ctx context.Context, list string) ([]models.RemoteRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]models.RemoteRow(nil), f.rows...), nil
}

func (f *fakeStore) UpdateByID(ctx context.Context, list string, id int, patch models.RemotePatch) error {
	if f.saveEnters != nil {
		f.saveEnters <- struct{}{}
	}
	if f.blockSave != nil {
		<-f.blockSave
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{list: list, id: id, patch: patch})
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, row := range f.rows {
		if row.ID == id {
			f.rows[i] = mapper.ApplyPatch(row, patch)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", store.ErrNotFound, id)
}

func (f *fakeStore) setFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

func scenarioRows() []models.RemoteRow {
	return []models.RemoteRow{
		{ID: 1, Office: &models.OfficeLink{Description: "HQ", Url: hqURL}, FirstName: "Ama", Title: "Mensah", JobTitle: "Clerk", Email: "ama@adra.org"},
		{ID: 2, Office: &models.OfficeLink{Description: "Branch", Url: "https://adra.sharepoint.com/network/branch"}, FirstName: "Kofi", Title: "Boateng"},
	}
}

func staffRows() []models.RemoteRow {
	office := &models.OfficeLink{Description: "HQ", Url: hqURL}
	return []models.RemoteRow{
		{ID: 1, Office: office, FirstName: "Ama", Title: "Mensah", JobTitle: "Clerk"},
		{ID: 2, Office: office, FirstName: "Kofi", Title: "Boateng", JobTitle: "Driver"},
		{ID: 3, Office: office, FirstName: "Esi", Title: "Owusu", JobTitle: "Accountant"},
		{ID: 4, Office: office, FirstName: "Yaw", Title: "Asante", JobTitle: "Clerk"},
	}
}

func loaded(t *testing.T, rows []models.RemoteRow) (*Component, *fakeStore) {
	t.Helper()
	fake := &fakeStore{rows: rows}
	c := NewComponent(fake, listName, hqURL)
	require.NoError(t, c.Load(context.Background()))
	return c, fake
}

func ids(records []models.DisplayRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func viewing(t *testing.T, c *Component) Viewing {
	t.Helper()
	v, ok := c.State().(Viewing)
	require.True(t, ok, "expected viewing, got %s", c.State().Phase())
	return v
}

func editing(t *testing.T, c *Component) Editing {
	t.Helper()
	e, ok := c.State().(Editing)
	require.True(t, ok, "expected editing, got %s", c.State().Phase())
	return e
}

func TestNewComponentStartsLoading(t *testing.T) {
	c := NewComponent(&fakeStore{}, listName, hqURL)
	assert.Equal(t, PhaseLoading, c.State().Phase())
}

func TestLoadFiltersToPartition(t *testing.T) {
	c, _ := loaded(t, scenarioRows())

	v := viewing(t, c)
	assert.Equal(t, []int{1}, ids(v.Records))
	assert.NoError(t, v.Err)
	assert.Equal(t, SortState{}, v.Sort)
}

func TestLoadDropsDuplicateIDs(t *testing.T) {
	rows := append(staffRows(), models.RemoteRow{ID: 2, Office: &models.OfficeLink{Url: hqURL}, FirstName: "Duplicate"})
	c, _ := loaded(t, rows)

	v := viewing(t, c)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(v.Records))
	assert.Equal(t, "Kofi", v.Records[1].FirstName)
}

func TestFirstLoadFailureLeavesEmptyListAndError(t *testing.T) {
	fake := &fakeStore{fetchErr: fmt.Errorf("%w: dial tcp: timeout", store.ErrRemoteUnavailable)}
	c := NewComponent(fake, listName, hqURL)

	err := c.Load(context.Background())

	require.ErrorIs(t, err, store.ErrRemoteUnavailable)
	v := viewing(t, c)
	assert.Empty(t, v.Records)
	require.Error(t, v.Err)
	assert.ErrorIs(t, v.Err, store.ErrRemoteUnavailable)
}

func TestReloadFailureKeepsPreviousRecordsAndSort(t *testing.T) {
	c, fake := loaded(t, staffRows())
	require.NoError(t, c.Sort(ColumnFirstName))
	before := viewing(t, c)

	fake.setFetchErr(errors.New("connection reset"))
	err := c.Load(context.Background())

	require.ErrorIs(t, err, store.ErrRemoteUnavailable, "foreign errors are classified as unavailable")
	after := viewing(t, c)
	assert.Equal(t, before.Records, after.Records)
	assert.Equal(t, before.Sort, after.Sort)
	assert.Error(t, after.Err)
}

func TestReloadResetsSortOrder(t *testing.T) {
	c, _ := loaded(t, staffRows())
	require.NoError(t, c.Sort(ColumnFirstName))
	assert.Equal(t, []int{1, 3, 2, 4}, ids(viewing(t, c).Records))

	require.NoError(t, c.Load(context.Background()))

	v := viewing(t, c)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(v.Records))
	assert.Equal(t, SortState{}, v.Sort)
}

func TestSortDoesNotCallStore(t *testing.T) {
	c, fake := loaded(t, staffRows())

	require.NoError(t, c.Sort(ColumnLastName))
	require.NoError(t, c.Sort(ColumnLastName))

	assert.Equal(t, 1, fake.fetches)
}

func TestSortUnknownColumn(t *testing.T) {
	c, _ := loaded(t, staffRows())

	err := c.Sort(Column("Id"))

	require.ErrorIs(t, err, ErrUnknownColumn)
	assert.Equal(t, SortState{}, viewing(t, c).Sort)
}

func TestSortKeepsLoadError(t *testing.T) {
	c, fake := loaded(t, staffRows())
	fake.setFetchErr(store.ErrRemoteUnavailable)
	require.Error(t, c.Load(context.Background()))

	require.NoError(t, c.Sort(ColumnEmail))

	assert.Error(t, viewing(t, c).Err)
}

func TestBeginEditClonesRecord(t *testing.T) {
	c, _ := loaded(t, staffRows())

	require.NoError(t, c.BeginEdit(3))

	e := editing(t, c)
	assert.True(t, e.Session.Open)
	assert.Equal(t, 3, e.Session.Working.ID)
	assert.Equal(t, e.Session.Original, e.Session.Working)
	assert.Equal(t, e.Records[2], e.Session.Working)
}

func TestBeginEditUnknownRecord(t *testing.T) {
	c, _ := loaded(t, scenarioRows())

	err := c.BeginEdit(2)

	require.ErrorIs(t, err, ErrUnknownRecord)
	viewing(t, c)
}

func TestBeginEditWhileEditingIsRejected(t *testing.T) {
	c, _ := loaded(t, staffRows())
	require.NoError(t, c.BeginEdit(1))
	require.NoError(t, c.ChangeField(models.FieldJobTitle, "Manager"))

	err := c.BeginEdit(2)

	require.ErrorIs(t, err, ErrEditInProgress)
	e := editing(t, c)
	assert.Equal(t, 1, e.Session.Working.ID)
	assert.Equal(t, "Manager", e.Session.Working.JobTitle)
}

func TestIllegalTransitionsWhileEditing(t *testing.T) {
	c, _ := loaded(t, staffRows())
	require.NoError(t, c.BeginEdit(1))

	assert.ErrorIs(t, c.Sort(ColumnEmail), ErrEditInProgress)
	assert.ErrorIs(t, c.Load(context.Background()), ErrEditInProgress)
	editing(t, c)
}

func TestEditOperationsWithoutSession(t *testing.T) {
	c, fake := loaded(t, staffRows())

	assert.ErrorIs(t, c.ChangeField(models.FieldEmail, "x"), ErrNotEditing)
	assert.ErrorIs(t, c.Cancel(), ErrNotEditing)
	assert.ErrorIs(t, c.Save(context.Background()), ErrNotEditing)
	assert.Empty(t, fake.updates)
}

func TestChangeFieldIsolatedFromDisplayedRecords(t *testing.T) {
	c, _ := loaded(t, staffRows())
	before := viewing(t, c).Records
	snapshot := append([]models.DisplayRecord(nil), before...)
	require.NoError(t, c.BeginEdit(1))

	require.NoError(t, c.ChangeField(models.FieldJobTitle, "Manager"))
	require.NoError(t, c.ChangeField(models.FieldEmail, "new@adra.org"))

	e := editing(t, c)
	assert.Equal(t, "Manager", e.Session.Working.JobTitle)
	assert.Equal(t, "new@adra.org", e.Session.Working.Email)
	assert.Equal(t, "Ama", e.Session.Working.FirstName)
	assert.Equal(t, "Clerk", e.Session.Original.JobTitle)
	assert.Equal(t, snapshot, e.Records)
	assert.Equal(t, snapshot, before)
}

func TestChangeFieldUnknownField(t *testing.T) {
	c, _ := loaded(t, staffRows())
	require.NoError(t, c.BeginEdit(1))

	err := c.ChangeField(models.Field("Id"), "7")

	var unknown *models.UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 1, editing(t, c).Session.Working.ID)
}

func TestCancelRestoresListAndSort(t *testing.T) {
	c, fake := loaded(t, staffRows())
	require.NoError(t, c.Sort(ColumnJobTitle))
	require.NoError(t, c.Sort(ColumnJobTitle))
	before := viewing(t, c)

	require.NoError(t, c.BeginEdit(2))
	require.NoError(t, c.ChangeField(models.FieldFirstName, "Changed"))
	require.NoError(t, c.ChangeField(models.FieldWorkPhone, "555"))
	require.NoError(t, c.Cancel())

	after := viewing(t, c)
	assert.Equal(t, before.Records, after.Records)
	assert.Equal(t, before.Sort, after.Sort)
	assert.Empty(t, fake.updates)
	assert.Equal(t, 1, fake.fetches)
}

func TestSaveScenario(t *testing.T) {
	c, fake := loaded(t, scenarioRows())
	require.Equal(t, []int{1}, ids(viewing(t, c).Records))

	require.NoError(t, c.BeginEdit(1))
	require.NoError(t, c.ChangeField(models.FieldJobTitle, "Manager"))
	require.NoError(t, c.Save(context.Background()))

	require.Len(t, fake.updates, 1)
	call := fake.updates[0]
	assert.Equal(t, listName, call.list)
	assert.Equal(t, 1, call.id)
	assert.Equal(t, mapper.ToRemotePatch(models.DisplayRecord{
		ID:             1,
		PartitionLabel: "HQ",
		PartitionKey:   hqURL,
		FirstName:      "Ama",
		LastName:       "Mensah",
		JobTitle:       "Manager",
		Email:          "ama@adra.org",
	}), call.patch)

	assert.Equal(t, 2, fake.fetches, "save reloads the list")
	v := viewing(t, c)
	require.Len(t, v.Records, 1)
	assert.Equal(t, "Manager", v.Records[0].JobTitle)
	assert.NoError(t, v.Err)
}

func TestSaveResetsSort(t *testing.T) {
	c, _ := loaded(t, staffRows())
	require.NoError(t, c.Sort(ColumnLastName))
	require.NoError(t, c.BeginEdit(4))

	require.NoError(t, c.Save(context.Background()))

	v := viewing(t, c)
	assert.Equal(t, SortState{}, v.Sort)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(v.Records))
}

func TestSaveFailureKeepsSession(t *testing.T) {
	c, fake := loaded(t, staffRows())
	fake.updateErr = fmt.Errorf("%w: status 503", store.ErrRemoteUnavailable)
	require.NoError(t, c.BeginEdit(2))
	require.NoError(t, c.ChangeField(models.FieldJobTitle, "Fleet Manager"))

	err := c.Save(context.Background())

	require.ErrorIs(t, err, store.ErrRemoteUnavailable)
	e := editing(t, c)
	assert.Equal(t, "Fleet Manager", e.Session.Working.JobTitle)
	assert.True(t, e.Session.Open)
	assert.ErrorIs(t, e.Err, store.ErrRemoteUnavailable)
	assert.Equal(t, "Driver", e.Records[1].JobTitle)
	assert.Equal(t, 1, fake.fetches)

	fake.updateErr = nil
	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, "Fleet Manager", viewing(t, c).Records[1].JobTitle)
}

func TestSaveNotFound(t *testing.T) {
	c, fake := loaded(t, staffRows())
	require.NoError(t, c.BeginEdit(3))
	fake.mu.Lock()
	fake.rows = fake.rows[:2]
	fake.mu.Unlock()

	err := c.Save(context.Background())

	require.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, editing(t, c).Err, store.ErrNotFound)
}

func TestSaveSucceedsButReloadFails(t *testing.T) {
	c, fake := loaded(t, staffRows())
	require.NoError(t, c.Sort(ColumnFirstName))
	before := viewing(t, c)
	require.NoError(t, c.BeginEdit(1))
	require.NoError(t, c.ChangeField(models.FieldJobTitle, "Manager"))
	fake.setFetchErr(store.ErrRemoteUnavailable)

	err := c.Save(context.Background())

	require.ErrorIs(t, err, store.ErrRemoteUnavailable)
	assert.Len(t, fake.updates, 1)
	v := viewing(t, c)
	assert.Equal(t, before.Records, v.Records)
	assert.Error(t, v.Err)
}

func TestStateReadableWhileSaving(t *testing.T) {
	fake := &fakeStore{rows: staffRows(), blockSave: make(chan struct{}), saveEnters: make(chan struct{})}
	c := NewComponent(fake, listName, hqURL)
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.BeginEdit(1))

	done := make(chan error)
	go func() { done <- c.Save(context.Background()) }()
	<-fake.saveEnters

	loading, ok := c.State().(Loading)
	require.True(t, ok)
	require.NotNil(t, loading.Saving)
	assert.Equal(t, 1, loading.Saving.Working.ID)
	assert.Len(t, loading.Records, 4)

	assert.ErrorIs(t, c.BeginEdit(2), ErrBusy)
	assert.ErrorIs(t, c.Sort(ColumnEmail), ErrBusy)
	assert.ErrorIs(t, c.Save(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.Load(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.ChangeField(models.FieldEmail, "x"), ErrBusy)

	close(fake.blockSave)
	require.NoError(t, <-done)
	viewing(t, c)
}

func TestCancelDuringSaveDismissesDialog(t *testing.T) {
	fake := &fakeStore{rows: staffRows(), blockSave: make(chan struct{}), saveEnters: make(chan struct{})}
	fake.updateErr = store.ErrRemoteUnavailable
	c := NewComponent(fake, listName, hqURL)
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.BeginEdit(1))

	done := make(chan error)
	go func() { done <- c.Save(context.Background()) }()
	<-fake.saveEnters

	require.NoError(t, c.Cancel())
	loading := c.State().(Loading)
	assert.False(t, loading.Saving.Open)

	close(fake.blockSave)
	require.ErrorIs(t, <-done, store.ErrRemoteUnavailable)

	v := viewing(t, c)
	assert.Error(t, v.Err)
	assert.Len(t, fake.updates, 1, "the save is not cancelled")
}

func TestCancelDuringPlainLoadIsBusy(t *testing.T) {
	c := NewComponent(&fakeStore{}, listName, hqURL)
	c.busy = true

	assert.ErrorIs(t, c.Cancel(), ErrBusy)
}

func TestObserverSeesTransitions(t *testing.T) {
	var seen []string
	fake := &fakeStore{rows: staffRows()}
	c := NewComponent(fake, listName, hqURL, WithObserver(func(from, to Phase) {
		seen = append(seen, string(from)+">"+string(to))
	}))

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.BeginEdit(1))
	require.NoError(t, c.Save(context.Background()))

	assert.Equal(t, []string{
		"loading>loading", "loading>viewing",
		"viewing>editing",
		"editing>loading", "loading>viewing",
	}, seen)
}
