package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skusync/internal/core/apperror"
	"skusync/internal/core/id"
	"skusync/internal/core/types"
	"skusync/internal/domain/activity"
	"skusync/internal/domain/pricing"
	"skusync/internal/domain/settings"
)

type memoryRepo struct {
	products map[id.ID]*Product
	order    []id.ID
	saveErr  map[string]error // by SKU
	saves    []string
}

func newMemoryRepo(seed ...*Product) *memoryRepo {
	r := &memoryRepo{products: make(map[id.ID]*Product), saveErr: make(map[string]error)}
	for _, p := range seed {
		r.products[p.ID] = p.Clone()
		r.order = append(r.order, p.ID)
	}
	return r
}

func (r *memoryRepo) List(_ context.Context) ([]*Product, error) {
	out := make([]*Product, 0, len(r.order))
	for _, pid := range r.order {
		out = append(out, r.products[pid].Clone())
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, productID id.ID) (*Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return p.Clone(), nil
}

func (r *memoryRepo) Save(_ context.Context, p *Product) error {
	if err := r.saveErr[p.SKU]; err != nil {
		return err
	}
	if _, ok := r.products[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.products[p.ID] = p.Clone()
	r.saves = append(r.saves, p.SKU)
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, productID id.ID) error {
	delete(r.products, productID)
	for i, pid := range r.order {
		if pid == productID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

type memoryMargins struct {
	values map[pricing.PriceList]float64
}

func newMemoryMargins() *memoryMargins {
	return &memoryMargins{values: make(map[pricing.PriceList]float64)}
}

func (m *memoryMargins) Get(_ context.Context, list pricing.PriceList) (*float64, error) {
	v, ok := m.values[list]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *memoryMargins) Set(_ context.Context, list pricing.PriceList, margin float64) error {
	m.values[list] = margin
	return nil
}

type memorySettingsRepo struct {
	stored *settings.AppSettings
}

func (r *memorySettingsRepo) Get(_ context.Context) (*settings.AppSettings, error) {
	return r.stored, nil
}

func (r *memorySettingsRepo) Save(_ context.Context, s settings.AppSettings) error {
	r.stored = &s
	return nil
}

type recordedEntry struct {
	kind    activity.Kind
	message string
}

type memoryRecorder struct {
	entries []recordedEntry
}

func (m *memoryRecorder) Append(_ context.Context, kind activity.Kind, message string, _ any) {
	m.entries = append(m.entries, recordedEntry{kind: kind, message: message})
}

func newTestService(repo *memoryRepo, margins *memoryMargins, rec *memoryRecorder) *Service {
	cfg := &memorySettingsRepo{stored: &settings.AppSettings{
		B2BFormula:      "cost * 2",
		ConsumerFormula: "cost * 3",
		Language:        "en",
	}}
	return NewService(repo, margins, settings.NewService(cfg), rec)
}

func TestServiceSave_PersistsEditedAndDependents(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	c := configured(compositeProduct("C-1", Component{ComponentID: a.ID, Quantity: 2}))
	repo := newMemoryRepo(a, c)
	rec := &memoryRecorder{}
	svc := newTestService(repo, newMemoryMargins(), rec)

	edited := a.Clone()
	edited.PurchaseCost = types.NewMoney(15)

	saved, err := svc.Save(context.Background(), edited)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, []string{"A-1", "C-1"}, repo.saves)

	stored, err := repo.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.PurchaseCost.Equal(types.NewMoney(30)))

	require.NotEmpty(t, rec.entries)
	assert.Equal(t, activity.KindSuccess, rec.entries[len(rec.entries)-1].kind)
}

func TestServiceSave_RejectsDuplicateSKU(t *testing.T) {
	a := configured(simpleProduct("ABC-1", 10))
	repo := newMemoryRepo(a)
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	dup := configured(simpleProduct("abc-1", 5))
	_, err := svc.Save(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicate(err))
	assert.Empty(t, repo.saves)
}

func TestServiceSave_AllowsKeepingOwnSKU(t *testing.T) {
	a := configured(simpleProduct("ABC-1", 10))
	repo := newMemoryRepo(a)
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	edited := a.Clone()
	edited.Name = "Renamed"
	_, err := svc.Save(context.Background(), edited)
	require.NoError(t, err)
}

func TestServiceSave_RejectsCompositeComponent(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	inner := configured(compositeProduct("C-IN", Component{ComponentID: a.ID, Quantity: 1}))
	repo := newMemoryRepo(a, inner)
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	outer := configured(compositeProduct("C-OUT", Component{ComponentID: inner.ID, Quantity: 1}))
	_, err := svc.Save(context.Background(), outer)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestServiceSave_RejectsSelfReference(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	c := configured(compositeProduct("C-1"))
	c.Components = []Component{{ComponentID: c.ID, Quantity: 1}}
	_, err := svc.Save(context.Background(), c)
	require.Error(t, err)
}

func TestServiceSave_RejectsTurningComponentIntoComposite(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	b := configured(simpleProduct("B-1", 5))
	c := configured(compositeProduct("C-1", Component{ComponentID: a.ID, Quantity: 1}))
	repo := newMemoryRepo(a, b, c)
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	edited := a.Clone()
	edited.Kind = KindComposite
	edited.Components = []Component{{ComponentID: b.ID, Quantity: 1}}
	_, err := svc.Save(context.Background(), edited)
	require.Error(t, err)
}

func TestServiceSave_IncompleteProductStillSaves(t *testing.T) {
	// An empty name or missing margin fails validation but must not
	// block saving a draft.
	repo := newMemoryRepo()
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	draft := simpleProduct("DRAFT-1", 0)
	draft.Name = ""
	saved, err := svc.Save(context.Background(), draft)
	require.NoError(t, err)
	require.Len(t, saved, 1)
}

func TestServiceSave_RemembersMargins(t *testing.T) {
	margins := newMemoryMargins()
	repo := newMemoryRepo()
	svc := newTestService(repo, margins, &memoryRecorder{})

	p := simpleProduct("A-1", 10)
	m := 35.0
	p.PriceEntry(pricing.PriceListB2B).Discount = &m

	_, err := svc.Save(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 35.0, margins.values[pricing.PriceListB2B])
	_, hasConsumer := margins.values[pricing.PriceListConsumer]
	assert.False(t, hasConsumer)
}

func TestServiceNewProduct_SeedsRememberedMargins(t *testing.T) {
	margins := newMemoryMargins()
	margins.values[pricing.PriceListB2B] = 20
	margins.values[pricing.PriceListConsumer] = 40
	svc := newTestService(newMemoryRepo(), margins, &memoryRecorder{})

	p := svc.NewProduct(context.Background(), KindSimple)
	require.NotNil(t, p.PriceEntry(pricing.PriceListB2B).Discount)
	assert.Equal(t, 20.0, *p.PriceEntry(pricing.PriceListB2B).Discount)
	require.NotNil(t, p.PriceEntry(pricing.PriceListConsumer).Discount)
	assert.Equal(t, 40.0, *p.PriceEntry(pricing.PriceListConsumer).Discount)
	assert.True(t, p.SyncPending)
}

func TestServiceNewProduct_NoMemoryLeavesMarginsUnset(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemoryMargins(), &memoryRecorder{})

	p := svc.NewProduct(context.Background(), KindComposite)
	assert.Nil(t, p.PriceEntry(pricing.PriceListB2B).Discount)
	assert.Equal(t, KindComposite, p.Kind)
	assert.NotNil(t, p.Components)
}

func TestServiceDelete_RecordsWarning(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	repo := newMemoryRepo(a)
	rec := &memoryRecorder{}
	svc := newTestService(repo, newMemoryMargins(), rec)

	require.NoError(t, svc.Delete(context.Background(), a.ID))
	_, err := repo.Get(context.Background(), a.ID)
	assert.True(t, apperror.IsNotFound(err))
	require.NotEmpty(t, rec.entries)
	assert.Equal(t, activity.KindWarning, rec.entries[len(rec.entries)-1].kind)
}

func TestServiceDelete_UnknownProduct(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemoryMargins(), &memoryRecorder{})
	err := svc.Delete(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestServiceBulkSetMargins_PerItemIsolation(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	b := configured(simpleProduct("B-1", 5))
	repo := newMemoryRepo(a, b)
	repo.saveErr["B-1"] = assert.AnError
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	missing := id.New()
	updated, failed, err := svc.BulkSetMargins(context.Background(),
		[]id.ID{a.ID, b.ID, missing}, pricing.PriceListB2B, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.ElementsMatch(t, []id.ID{b.ID, missing}, failed)

	stored, err := repo.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PriceEntry(pricing.PriceListB2B).Discount)
	assert.Equal(t, 30.0, *stored.PriceEntry(pricing.PriceListB2B).Discount)
}

func TestServiceSave_KeepsCRMReferenceOnUpdate(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	ref := "tl-123"
	syncedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a.ExternalRef = &ref
	a.LastSyncedAt = &syncedAt
	repo := newMemoryRepo(a)
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	// Clients never echo sync state back on edits.
	edited := a.Clone()
	edited.PurchaseCost = types.NewMoney(15)
	edited.ExternalRef = nil
	edited.LastSyncedAt = nil

	saved, err := svc.Save(context.Background(), edited)
	require.NoError(t, err)
	require.NotNil(t, saved[0].ExternalRef)
	assert.Equal(t, "tl-123", *saved[0].ExternalRef)
	require.NotNil(t, saved[0].LastSyncedAt)
	assert.True(t, saved[0].LastSyncedAt.Equal(syncedAt))
	assert.True(t, saved[0].SyncPending)

	stored, err := repo.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExternalRef)
	assert.Equal(t, "tl-123", *stored.ExternalRef)
}

func TestServiceValidate_UsesStoredSnapshot(t *testing.T) {
	a := configured(simpleProduct("A-1", 10))
	c := configured(compositeProduct("C-1", Component{ComponentID: a.ID, Quantity: 2}))
	repo := newMemoryRepo(a, c)
	svc := newTestService(repo, newMemoryMargins(), &memoryRecorder{})

	res, err := svc.Validate(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}
