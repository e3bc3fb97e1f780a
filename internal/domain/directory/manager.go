package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"frpops/internal/platform/store"
)

var (
	ErrMutationInFlight = errors.New("directory: mutation already in flight for collection")
	ErrProtectedRecord  = errors.New("directory: record is protected")
	ErrRecordNotFound   = errors.New("directory: record not found")
)

type UserInput struct {
	Username     string
	PasswordHash string
	NIK          string
	Jabatan      string
	Lokasi       string
}

// UserUpdate carries the changed fields; empty means unchanged. An empty
// PasswordHash keeps the stored credential, it never clears it.
type UserUpdate struct {
	Username     string
	PasswordHash string
	NIK          string
	Jabatan      string
	Lokasi       string
}

type EquipmentInput struct {
	NomorLambung   string
	NomorPolisi    string
	JenisKendaraan string
	Lokasi         string
}

type EquipmentUpdate struct {
	NomorLambung   string
	NomorPolisi    string
	JenisKendaraan string
	Lokasi         string
}

type LocationInput struct {
	Name      string
	Latitude  *float64
	Longitude *float64
}

type LocationUpdate struct {
	Name      string
	Latitude  *float64
	Longitude *float64
}

// Manager mirrors the three record collections in memory and keeps the
// mirror consistent with store mutations. The mirror is synchronized
// optimistically: it is adjusted locally after each successful store call and
// left untouched on failure. The store remains the source of truth; Refresh
// re-fetches everything on demand.
type Manager struct {
	store store.Client

	mu        sync.RWMutex
	users     []UserRecord
	equipment []EquipmentRecord
	locations []LocationRecord
	loaded    bool

	busy map[string]*sync.Mutex
}

func NewManager(client store.Client) *Manager {
	return &Manager{
		store: client,
		busy: map[string]*sync.Mutex{
			CollectionUsers:     {},
			CollectionEquipment: {},
			CollectionLocations: {},
		},
	}
}

// beginMutation enforces the one-mutation-in-flight rule per collection.
// Mutations on different collections proceed independently.
func (m *Manager) beginMutation(collection string) (func(), error) {
	lock := m.busy[collection]
	if lock == nil {
		return nil, fmt.Errorf("directory: unknown collection %q", collection)
	}
	if !lock.TryLock() {
		return nil, ErrMutationInFlight
	}
	return lock.Unlock, nil
}

// Load fetches all three collections concurrently and replaces the mirror.
// Any single failure fails the load as a whole; partial results are discarded.
func (m *Manager) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	var userRecs, alatRecs, locRecs []store.Record
	g.Go(func() error {
		var err error
		userRecs, err = m.store.ListAll(ctx, CollectionUsers)
		return err
	})
	g.Go(func() error {
		var err error
		alatRecs, err = m.store.ListAll(ctx, CollectionEquipment)
		return err
	})
	g.Go(func() error {
		var err error
		locRecs, err = m.store.ListAll(ctx, CollectionLocations)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("directory load failed: %w", err)
	}

	users := make([]UserRecord, 0, len(userRecs))
	for _, rec := range userRecs {
		users = append(users, UserFromRecord(rec))
	}
	equipment := make([]EquipmentRecord, 0, len(alatRecs))
	for _, rec := range alatRecs {
		equipment = append(equipment, EquipmentFromRecord(rec))
	}
	locations := make([]LocationRecord, 0, len(locRecs))
	for _, rec := range locRecs {
		locations = append(locations, LocationFromRecord(rec))
	}

	m.mu.Lock()
	m.users = users
	m.equipment = equipment
	m.locations = locations
	m.loaded = true
	m.mu.Unlock()
	return nil
}

// Refresh re-fetches all collections, discarding the optimistic mirror.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.Load(ctx)
}

func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

func (m *Manager) Users() []UserRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UserRecord, len(m.users))
	copy(out, m.users)
	return out
}

func (m *Manager) Equipment() []EquipmentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EquipmentRecord, len(m.equipment))
	copy(out, m.equipment)
	return out
}

func (m *Manager) Locations() []LocationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LocationRecord, len(m.locations))
	copy(out, m.locations)
	return out
}

func (m *Manager) CreateUser(ctx context.Context, input UserInput) (UserRecord, error) {
	done, err := m.beginMutation(CollectionUsers)
	if err != nil {
		return UserRecord{}, err
	}
	defer done()

	rec := UserRecord{
		Username:     NormalizeUsername(input.Username),
		PasswordHash: input.PasswordHash,
		NIK:          NormalizeNIK(input.NIK),
		Jabatan:      input.Jabatan,
		Lokasi:       input.Lokasi,
		Role:         RoleFromUsername(input.Username),
	}
	id, err := m.store.Insert(ctx, CollectionUsers, store.Document{
		"username": rec.Username,
		"password": rec.PasswordHash,
		"nik":      rec.NIK,
		"jabatan":  rec.Jabatan,
		"lokasi":   rec.Lokasi,
		"role":     rec.Role,
	})
	if err != nil {
		return UserRecord{}, fmt.Errorf("create user: %w", err)
	}
	rec.ID = id

	m.mu.Lock()
	m.users = append(m.users, rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *Manager) UpdateUser(ctx context.Context, id string, update UserUpdate) (UserRecord, error) {
	done, err := m.beginMutation(CollectionUsers)
	if err != nil {
		return UserRecord{}, err
	}
	defer done()

	partial := store.Document{}
	if update.Username != "" {
		partial["username"] = NormalizeUsername(update.Username)
	}
	if update.NIK != "" {
		partial["nik"] = NormalizeNIK(update.NIK)
	}
	if update.Jabatan != "" {
		partial["jabatan"] = update.Jabatan
	}
	if update.Lokasi != "" {
		partial["lokasi"] = update.Lokasi
	}
	if update.PasswordHash != "" {
		partial["password"] = update.PasswordHash
	}

	if err := m.store.Update(ctx, CollectionUsers, id, partial); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UserRecord{}, ErrRecordNotFound
		}
		return UserRecord{}, fmt.Errorf("update user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID != id {
			continue
		}
		if value, ok := partial["username"].(string); ok {
			m.users[i].Username = value
		}
		if value, ok := partial["nik"].(string); ok {
			m.users[i].NIK = value
		}
		if value, ok := partial["jabatan"].(string); ok {
			m.users[i].Jabatan = value
		}
		if value, ok := partial["lokasi"].(string); ok {
			m.users[i].Lokasi = value
		}
		if value, ok := partial["password"].(string); ok {
			m.users[i].PasswordHash = value
		}
		return m.users[i], nil
	}
	return UserRecord{ID: id}, nil
}

func (m *Manager) DeleteUser(ctx context.Context, id string) error {
	done, err := m.beginMutation(CollectionUsers)
	if err != nil {
		return err
	}
	defer done()

	m.mu.RLock()
	var mirrored bool
	for _, rec := range m.users {
		if rec.ID != id {
			continue
		}
		mirrored = true
		if IsProtectedUser(rec.Username) {
			m.mu.RUnlock()
			return ErrProtectedRecord
		}
	}
	m.mu.RUnlock()

	// A record written out-of-band since the last refresh is not mirrored;
	// the protection check must then consult the store itself.
	if !mirrored {
		rec, err := m.store.Get(ctx, CollectionUsers, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRecordNotFound
		}
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if IsProtectedUser(docString(rec.Doc, "username")) {
			return ErrProtectedRecord
		}
	}

	if err := m.store.Delete(ctx, CollectionUsers, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	m.mu.Lock()
	for i, rec := range m.users {
		if rec.ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) CreateEquipment(ctx context.Context, input EquipmentInput) (EquipmentRecord, error) {
	done, err := m.beginMutation(CollectionEquipment)
	if err != nil {
		return EquipmentRecord{}, err
	}
	defer done()

	rec := EquipmentRecord{
		NomorLambung:   input.NomorLambung,
		NomorPolisi:    input.NomorPolisi,
		JenisKendaraan: input.JenisKendaraan,
		Lokasi:         input.Lokasi,
	}
	id, err := m.store.Insert(ctx, CollectionEquipment, store.Document{
		"nomorLambung":   rec.NomorLambung,
		"nomorPolisi":    rec.NomorPolisi,
		"jenisKendaraan": rec.JenisKendaraan,
		"lokasi":         rec.Lokasi,
	})
	if err != nil {
		return EquipmentRecord{}, fmt.Errorf("create equipment: %w", err)
	}
	rec.ID = id

	m.mu.Lock()
	m.equipment = append(m.equipment, rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *Manager) UpdateEquipment(ctx context.Context, id string, update EquipmentUpdate) (EquipmentRecord, error) {
	done, err := m.beginMutation(CollectionEquipment)
	if err != nil {
		return EquipmentRecord{}, err
	}
	defer done()

	partial := store.Document{}
	if update.NomorLambung != "" {
		partial["nomorLambung"] = update.NomorLambung
	}
	if update.NomorPolisi != "" {
		partial["nomorPolisi"] = update.NomorPolisi
	}
	if update.JenisKendaraan != "" {
		partial["jenisKendaraan"] = update.JenisKendaraan
	}
	if update.Lokasi != "" {
		partial["lokasi"] = update.Lokasi
	}

	if err := m.store.Update(ctx, CollectionEquipment, id, partial); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return EquipmentRecord{}, ErrRecordNotFound
		}
		return EquipmentRecord{}, fmt.Errorf("update equipment: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.equipment {
		if m.equipment[i].ID != id {
			continue
		}
		if value, ok := partial["nomorLambung"].(string); ok {
			m.equipment[i].NomorLambung = value
		}
		if value, ok := partial["nomorPolisi"].(string); ok {
			m.equipment[i].NomorPolisi = value
		}
		if value, ok := partial["jenisKendaraan"].(string); ok {
			m.equipment[i].JenisKendaraan = value
		}
		if value, ok := partial["lokasi"].(string); ok {
			m.equipment[i].Lokasi = value
		}
		return m.equipment[i], nil
	}
	return EquipmentRecord{ID: id}, nil
}

func (m *Manager) DeleteEquipment(ctx context.Context, id string) error {
	done, err := m.beginMutation(CollectionEquipment)
	if err != nil {
		return err
	}
	defer done()

	if err := m.store.Delete(ctx, CollectionEquipment, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("delete equipment: %w", err)
	}

	m.mu.Lock()
	for i, rec := range m.equipment {
		if rec.ID == id {
			m.equipment = append(m.equipment[:i], m.equipment[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) CreateLocation(ctx context.Context, input LocationInput) (LocationRecord, error) {
	done, err := m.beginMutation(CollectionLocations)
	if err != nil {
		return LocationRecord{}, err
	}
	defer done()

	rec := LocationRecord{
		Name:      input.Name,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}
	doc := store.Document{"name": rec.Name}
	if rec.Latitude != nil {
		doc["latitude"] = *rec.Latitude
	}
	if rec.Longitude != nil {
		doc["longitude"] = *rec.Longitude
	}
	id, err := m.store.Insert(ctx, CollectionLocations, doc)
	if err != nil {
		return LocationRecord{}, fmt.Errorf("create location: %w", err)
	}
	rec.ID = id

	m.mu.Lock()
	m.locations = append(m.locations, rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *Manager) UpdateLocation(ctx context.Context, id string, update LocationUpdate) (LocationRecord, error) {
	done, err := m.beginMutation(CollectionLocations)
	if err != nil {
		return LocationRecord{}, err
	}
	defer done()

	partial := store.Document{}
	if update.Name != "" {
		partial["name"] = update.Name
	}
	if update.Latitude != nil {
		partial["latitude"] = *update.Latitude
	}
	if update.Longitude != nil {
		partial["longitude"] = *update.Longitude
	}

	if err := m.store.Update(ctx, CollectionLocations, id, partial); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LocationRecord{}, ErrRecordNotFound
		}
		return LocationRecord{}, fmt.Errorf("update location: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.locations {
		if m.locations[i].ID != id {
			continue
		}
		if value, ok := partial["name"].(string); ok {
			m.locations[i].Name = value
		}
		if value, ok := partial["latitude"].(float64); ok {
			m.locations[i].Latitude = &value
		}
		if value, ok := partial["longitude"].(float64); ok {
			m.locations[i].Longitude = &value
		}
		return m.locations[i], nil
	}
	return LocationRecord{ID: id}, nil
}

func (m *Manager) DeleteLocation(ctx context.Context, id string) error {
	done, err := m.beginMutation(CollectionLocations)
	if err != nil {
		return err
	}
	defer done()

	if err := m.store.Delete(ctx, CollectionLocations, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("delete location: %w", err)
	}

	m.mu.Lock()
	for i, rec := range m.locations {
		if rec.ID == id {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}
