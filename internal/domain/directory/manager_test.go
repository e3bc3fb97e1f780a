package directory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"frpops/internal/platform/store"
)

func seedUser(t *testing.T, client store.Client, doc store.Document) string {
	t.Helper()
	id, err := client.Insert(context.Background(), CollectionUsers, doc)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func loadedManager(t *testing.T, client store.Client) *Manager {
	t.Helper()
	m := NewManager(client)
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load manager: %v", err)
	}
	return m
}

func TestManagerLoad(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	seedUser(t, mem, store.Document{"username": "SUPERADMIN", "password": "hash", "jabatan": "SUPER ADMIN", "role": RoleAdmin})
	seedUser(t, mem, store.Document{"username": "BUDI", "password": "hash", "jabatan": "SOPIR", "role": RoleUser})
	if _, err := mem.Insert(ctx, CollectionEquipment, store.Document{"nomorLambung": "TM-01", "nomorPolisi": "BM 1234 AB", "jenisKendaraan": "TRUK MIXER", "lokasi": "BP PEKANBARU"}); err != nil {
		t.Fatalf("seed equipment: %v", err)
	}
	if _, err := mem.Insert(ctx, CollectionLocations, store.Document{"name": "BP PEKANBARU", "latitude": 0.51, "longitude": 101.44}); err != nil {
		t.Fatalf("seed location: %v", err)
	}

	m := loadedManager(t, mem)

	users := m.Users()
	if len(users) != 2 {
		t.Fatalf("Users() returned %d records, want 2", len(users))
	}
	if users[0].Username != "SUPERADMIN" || users[1].Username != "BUDI" {
		t.Fatalf("Users() order = %q, %q; want store insertion order", users[0].Username, users[1].Username)
	}
	if users[0].PasswordHash != "hash" {
		t.Fatal("Users() should carry the stored credential hash")
	}

	equipment := m.Equipment()
	if len(equipment) != 1 || equipment[0].NomorLambung != "TM-01" {
		t.Fatalf("Equipment() = %+v, want the seeded unit", equipment)
	}

	locations := m.Locations()
	if len(locations) != 1 || locations[0].Name != "BP PEKANBARU" {
		t.Fatalf("Locations() = %+v, want the seeded site", locations)
	}
	if locations[0].Latitude == nil || *locations[0].Latitude != 0.51 {
		t.Fatalf("Locations() latitude = %v, want 0.51", locations[0].Latitude)
	}
	if !m.Loaded() {
		t.Fatal("Loaded() = false after a successful load")
	}
}

type failingStore struct {
	store.Client
}

func (f *failingStore) ListAll(context.Context, string) ([]store.Record, error) {
	return nil, errors.New("store down")
}

func TestManagerLoadFailureDiscardsPartials(t *testing.T) {
	m := NewManager(&failingStore{Client: store.NewMemory()})
	if err := m.Load(context.Background()); err == nil {
		t.Fatal("Load() should fail when any collection fetch fails")
	}
	if m.Loaded() {
		t.Fatal("Loaded() = true after a failed load")
	}
	if len(m.Users()) != 0 {
		t.Fatal("a failed load must not leave partial results in the mirror")
	}
}

func TestCreateUserNormalizesInput(t *testing.T) {
	mem := store.NewMemory()
	m := loadedManager(t, mem)

	rec, err := m.CreateUser(context.Background(), UserInput{
		Username:     "  budi ",
		PasswordHash: "hash",
		NIK:          " nik-007 ",
		Jabatan:      "SOPIR",
		Lokasi:       "BP PEKANBARU",
	})
	if err != nil {
		t.Fatalf("CreateUser() unexpected error: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("CreateUser() should assign a record id")
	}
	if rec.Username != "BUDI" {
		t.Fatalf("Username = %q, want upper-cased trimmed %q", rec.Username, "BUDI")
	}
	if rec.NIK != "NIK-007" {
		t.Fatalf("NIK = %q, want %q", rec.NIK, "NIK-007")
	}
	if rec.Role != RoleUser {
		t.Fatalf("Role = %q, want %q", rec.Role, RoleUser)
	}

	// The mirror reflects the insert without a reload.
	users := m.Users()
	if len(users) != 1 || users[0].ID != rec.ID {
		t.Fatalf("Users() = %+v, want the created record", users)
	}

	// And the store holds the same document.
	stored, err := mem.FindOne(context.Background(), CollectionUsers, "username", "BUDI")
	if err != nil {
		t.Fatalf("FindOne() unexpected error: %v", err)
	}
	if stored.Doc["role"] != RoleUser {
		t.Fatalf("stored role = %v, want %q", stored.Doc["role"], RoleUser)
	}
}

func TestCreateUserDerivesAdminRole(t *testing.T) {
	m := loadedManager(t, store.NewMemory())
	rec, err := m.CreateUser(context.Background(), UserInput{Username: "Admin", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser() unexpected error: %v", err)
	}
	if rec.Role != RoleAdmin {
		t.Fatalf("Role = %q, want %q", rec.Role, RoleAdmin)
	}
}

func TestUpdateUserPartial(t *testing.T) {
	mem := store.NewMemory()
	m := loadedManager(t, mem)
	rec, err := m.CreateUser(context.Background(), UserInput{
		Username:     "BUDI",
		PasswordHash: "original-hash",
		NIK:          "NIK-007",
		Jabatan:      "SOPIR",
		Lokasi:       "BP PEKANBARU",
	})
	if err != nil {
		t.Fatalf("CreateUser() unexpected error: %v", err)
	}

	updated, err := m.UpdateUser(context.Background(), rec.ID, UserUpdate{Lokasi: "BP DUMAI"})
	if err != nil {
		t.Fatalf("UpdateUser() unexpected error: %v", err)
	}
	if updated.Lokasi != "BP DUMAI" {
		t.Fatalf("Lokasi = %q, want %q", updated.Lokasi, "BP DUMAI")
	}
	if updated.Username != "BUDI" || updated.Jabatan != "SOPIR" || updated.NIK != "NIK-007" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.PasswordHash != "original-hash" {
		t.Fatal("an empty password update must keep the stored credential")
	}

	stored, err := mem.FindOne(context.Background(), CollectionUsers, "username", "BUDI")
	if err != nil {
		t.Fatalf("FindOne() unexpected error: %v", err)
	}
	if stored.Doc["password"] != "original-hash" {
		t.Fatalf("stored password = %v, want the original hash", stored.Doc["password"])
	}
	if stored.Doc["lokasi"] != "BP DUMAI" {
		t.Fatalf("stored lokasi = %v, want %q", stored.Doc["lokasi"], "BP DUMAI")
	}

	// A non-empty password replaces the stored credential.
	updated, err = m.UpdateUser(context.Background(), rec.ID, UserUpdate{PasswordHash: "new-hash"})
	if err != nil {
		t.Fatalf("UpdateUser() unexpected error: %v", err)
	}
	if updated.PasswordHash != "new-hash" {
		t.Fatal("a supplied password must replace the stored credential")
	}
	stored, err = mem.FindOne(context.Background(), CollectionUsers, "username", "BUDI")
	if err != nil {
		t.Fatalf("FindOne() unexpected error: %v", err)
	}
	if stored.Doc["password"] != "new-hash" {
		t.Fatalf("stored password = %v, want the replacement hash", stored.Doc["password"])
	}
}

func TestUpdateUserUnknownRecord(t *testing.T) {
	m := loadedManager(t, store.NewMemory())
	if _, err := m.UpdateUser(context.Background(), "missing", UserUpdate{Lokasi: "X"}); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("UpdateUser() error = %v, want ErrRecordNotFound", err)
	}
}

func TestDeleteUserProtectsRootAccount(t *testing.T) {
	mem := store.NewMemory()
	id := seedUser(t, mem, store.Document{"username": "SUPERADMIN", "password": "hash", "jabatan": "SUPER ADMIN", "role": RoleAdmin})
	m := loadedManager(t, mem)

	if err := m.DeleteUser(context.Background(), id); !errors.Is(err, ErrProtectedRecord) {
		t.Fatalf("DeleteUser() error = %v, want ErrProtectedRecord", err)
	}
	if len(m.Users()) != 1 {
		t.Fatal("protected record must survive the delete attempt")
	}
	if _, err := mem.FindOne(context.Background(), CollectionUsers, "username", "SUPERADMIN"); err != nil {
		t.Fatalf("root account missing from store after rejected delete: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	mem := store.NewMemory()
	m := loadedManager(t, mem)
	rec, err := m.CreateUser(context.Background(), UserInput{Username: "BUDI", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser() unexpected error: %v", err)
	}

	if err := m.DeleteUser(context.Background(), rec.ID); err != nil {
		t.Fatalf("DeleteUser() unexpected error: %v", err)
	}
	if len(m.Users()) != 0 {
		t.Fatal("mirror should drop the deleted record")
	}
	if err := m.DeleteUser(context.Background(), rec.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("DeleteUser() error = %v, want ErrRecordNotFound", err)
	}
}

type brokenStore struct {
	store.Client
}

func (b *brokenStore) Insert(context.Context, string, store.Document) (string, error) {
	return "", errors.New("store down")
}

func (b *brokenStore) Update(context.Context, string, string, store.Document) error {
	return errors.New("store down")
}

func (b *brokenStore) Delete(context.Context, string, string) error {
	return errors.New("store down")
}

func TestFailedMutationsLeaveMirrorUntouched(t *testing.T) {
	mem := store.NewMemory()
	id := seedUser(t, mem, store.Document{"username": "BUDI", "password": "hash", "jabatan": "SOPIR", "lokasi": "BP PEKANBARU", "role": RoleUser})
	m := loadedManager(t, &brokenStore{Client: mem})
	ctx := context.Background()

	rec, err := m.CreateUser(ctx, UserInput{Username: "SITI", PasswordHash: "hash"})
	if err == nil {
		t.Fatal("CreateUser() should surface the store failure")
	}
	if rec.ID != "" {
		t.Fatalf("CreateUser() fabricated id %q on failure", rec.ID)
	}
	if users := m.Users(); len(users) != 1 || users[0].ID != id {
		t.Fatalf("Users() = %+v, failed create must not touch the mirror", users)
	}

	if _, err := m.UpdateUser(ctx, id, UserUpdate{Lokasi: "BP DUMAI"}); err == nil {
		t.Fatal("UpdateUser() should surface the store failure")
	}
	if users := m.Users(); users[0].Lokasi != "BP PEKANBARU" {
		t.Fatalf("Lokasi = %q, failed update must not touch the mirror", users[0].Lokasi)
	}

	if err := m.DeleteUser(ctx, id); err == nil {
		t.Fatal("DeleteUser() should surface the store failure")
	}
	if users := m.Users(); len(users) != 1 {
		t.Fatal("failed delete must not touch the mirror")
	}

	if _, err := m.CreateEquipment(ctx, EquipmentInput{NomorLambung: "TM-01"}); err == nil {
		t.Fatal("CreateEquipment() should surface the store failure")
	}
	if len(m.Equipment()) != 0 {
		t.Fatal("failed create must not touch the equipment mirror")
	}
	if _, err := m.CreateLocation(ctx, LocationInput{Name: "BP DUMAI"}); err == nil {
		t.Fatal("CreateLocation() should surface the store failure")
	}
	if len(m.Locations()) != 0 {
		t.Fatal("failed create must not touch the locations mirror")
	}

	// The in-flight guard is released after a failure: the retry reaches the
	// store again instead of being refused.
	if _, err := m.CreateUser(ctx, UserInput{Username: "SITI", PasswordHash: "hash"}); errors.Is(err, ErrMutationInFlight) {
		t.Fatal("guard still held after a failed mutation")
	}
}

func TestDeleteUserProtectsUnmirroredRootAccount(t *testing.T) {
	mem := store.NewMemory()
	m := loadedManager(t, mem)

	// The protected record lands in the store out-of-band, after the load.
	id := seedUser(t, mem, store.Document{"username": "superadmin", "password": "hash", "jabatan": "SUPER ADMIN", "role": RoleAdmin})

	if err := m.DeleteUser(context.Background(), id); !errors.Is(err, ErrProtectedRecord) {
		t.Fatalf("DeleteUser() error = %v, want ErrProtectedRecord", err)
	}
	if _, err := mem.Get(context.Background(), CollectionUsers, id); err != nil {
		t.Fatalf("root account missing from store after rejected delete: %v", err)
	}
}

type blockingStore struct {
	store.Client
	collection string
	entered    chan struct{}
	release    chan struct{}
	once       sync.Once
}

func (b *blockingStore) Insert(ctx context.Context, collection string, doc store.Document) (string, error) {
	if collection == b.collection {
		b.once.Do(func() {
			b.entered <- struct{}{}
			<-b.release
		})
	}
	return b.Client.Insert(ctx, collection, doc)
}

func TestMutationInFlightPerCollection(t *testing.T) {
	blocking := &blockingStore{
		Client:     store.NewMemory(),
		collection: CollectionUsers,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	m := loadedManager(t, blocking)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := m.CreateUser(ctx, UserInput{Username: "BUDI", PasswordHash: "hash"})
		done <- err
	}()
	<-blocking.entered

	// A second users mutation while the first is saving is refused.
	if _, err := m.CreateUser(ctx, UserInput{Username: "SITI", PasswordHash: "hash"}); !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("CreateUser() error = %v, want ErrMutationInFlight", err)
	}

	// Other collections stay independent.
	if _, err := m.CreateLocation(ctx, LocationInput{Name: "BP DUMAI"}); err != nil {
		t.Fatalf("CreateLocation() unexpected error: %v", err)
	}

	close(blocking.release)
	if err := <-done; err != nil {
		t.Fatalf("blocked CreateUser() unexpected error: %v", err)
	}

	// The guard clears once the mutation finishes.
	if _, err := m.CreateUser(ctx, UserInput{Username: "SITI", PasswordHash: "hash"}); err != nil {
		t.Fatalf("CreateUser() after release unexpected error: %v", err)
	}
}

func TestRefreshReconcilesExternalChanges(t *testing.T) {
	mem := store.NewMemory()
	m := loadedManager(t, mem)

	// A write that bypassed the manager is invisible until a refresh.
	seedUser(t, mem, store.Document{"username": "SITI", "password": "hash", "jabatan": "QC", "role": RoleUser})
	if len(m.Users()) != 0 {
		t.Fatal("mirror should not see external writes before a refresh")
	}

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}
	users := m.Users()
	if len(users) != 1 || users[0].Username != "SITI" {
		t.Fatalf("Users() after refresh = %+v, want the external record", users)
	}
}

func TestEquipmentAndLocationLifecycle(t *testing.T) {
	m := loadedManager(t, store.NewMemory())
	ctx := context.Background()

	unit, err := m.CreateEquipment(ctx, EquipmentInput{
		NomorLambung:   "TM-01",
		NomorPolisi:    "BM 1234 AB",
		JenisKendaraan: "TRUK MIXER",
		Lokasi:         "BP PEKANBARU",
	})
	if err != nil {
		t.Fatalf("CreateEquipment() unexpected error: %v", err)
	}

	unit, err = m.UpdateEquipment(ctx, unit.ID, EquipmentUpdate{Lokasi: "BP DUMAI"})
	if err != nil {
		t.Fatalf("UpdateEquipment() unexpected error: %v", err)
	}
	if unit.Lokasi != "BP DUMAI" || unit.NomorLambung != "TM-01" {
		t.Fatalf("UpdateEquipment() = %+v, want only lokasi changed", unit)
	}

	lat, lng := 0.51, 101.44
	site, err := m.CreateLocation(ctx, LocationInput{Name: "BP PEKANBARU", Latitude: &lat, Longitude: &lng})
	if err != nil {
		t.Fatalf("CreateLocation() unexpected error: %v", err)
	}
	newLat := 1.68
	site, err = m.UpdateLocation(ctx, site.ID, LocationUpdate{Latitude: &newLat})
	if err != nil {
		t.Fatalf("UpdateLocation() unexpected error: %v", err)
	}
	if site.Latitude == nil || *site.Latitude != newLat {
		t.Fatalf("UpdateLocation() latitude = %v, want %v", site.Latitude, newLat)
	}
	if site.Longitude == nil || *site.Longitude != lng {
		t.Fatalf("UpdateLocation() longitude = %v, want untouched %v", site.Longitude, lng)
	}

	if err := m.DeleteEquipment(ctx, unit.ID); err != nil {
		t.Fatalf("DeleteEquipment() unexpected error: %v", err)
	}
	if err := m.DeleteLocation(ctx, site.ID); err != nil {
		t.Fatalf("DeleteLocation() unexpected error: %v", err)
	}
	if len(m.Equipment()) != 0 || len(m.Locations()) != 0 {
		t.Fatal("mirror should drop deleted records")
	}
}

func TestEnsureRootUserIdempotent(t *testing.T) {
	mem := store.NewMemory()
	m := NewManager(mem)
	ctx := context.Background()

	if err := m.EnsureRootUser(ctx, "SUPERADMIN", "hash-one"); err != nil {
		t.Fatalf("EnsureRootUser() unexpected error: %v", err)
	}
	if err := m.EnsureRootUser(ctx, "SUPERADMIN", "hash-two"); err != nil {
		t.Fatalf("EnsureRootUser() second call unexpected error: %v", err)
	}

	records, err := mem.ListAll(ctx, CollectionUsers)
	if err != nil {
		t.Fatalf("ListAll() unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("store holds %d root accounts, want 1", len(records))
	}
	if records[0].Doc["password"] != "hash-one" {
		t.Fatal("a second seed must not overwrite the existing credential")
	}
}
