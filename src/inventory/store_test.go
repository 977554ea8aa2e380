package inventory

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"log"
	"testing"

	"taquilla/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func layoutRows(t *testing.T, version uint, seats []types.SeatRecord) *sqlmock.Rows {
	t.Helper()
	doc := types.SeatDocument{
		Venue:        types.VenueInfo{Name: "La Plaza", Type: "ruedo", Capacity: len(seats)},
		CreatedSeats: seats,
		ExportDate:   "2026-01-01T00:00:00Z",
	}
	b, err := json.Marshal(doc)
	assert.Nil(t, err)
	return sqlmock.
		NewRows([]string{"key", "document", "version"}).
		AddRow("la-plaza", b, version)
}

func someSeats() []types.SeatRecord {
	return []types.SeatRecord{
		{ID: "s1", Zone: "Sombra", Row: strptr("A"), Number: intptr(1), Price: 350, Status: types.SEAT_AVAILABLE},
		{ID: "s2", Zone: "Sombra", Row: strptr("A"), Number: intptr(2), Price: 350, Status: types.SEAT_RESERVED},
		{ID: "s3", Zone: "Sol", Row: strptr("B"), Number: intptr(1), Price: 200, Status: types.SEAT_SOLD},
	}
}

func TestGetConfig(t *testing.T) {
	d, mock := newMockDB()
	store := NewStore(d)

	mock.
		ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
		WillReturnRows(layoutRows(t, 3, someSeats()))

	doc, err := store.GetConfig("la-plaza")
	assert.Nil(t, err)
	assert.Equal(t, "La Plaza", doc.Venue.Name)
	assert.Len(t, doc.CreatedSeats, 3)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestGetConfigNotFound(t *testing.T) {
	d, mock := newMockDB()
	store := NewStore(d)

	mock.
		ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "document", "version"}))

	_, err := store.GetConfig("no-such-venue")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

// documentArg captures the serialized seat document handed to an UPDATE so
// the test can inspect what was actually written.
type documentArg struct {
	doc *types.SeatDocument
}

func (a *documentArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(s), a.doc) == nil
}

func TestUpdateStatusRetriesOnVersionConflict(t *testing.T) {
	d, mock := newMockDB()
	store := NewStore(d)

	// First pass: a concurrent writer occupied s2 and bumped the version
	// between our read and write.
	mock.
		ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
		WillReturnRows(layoutRows(t, 3, someSeats()))
	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE "venue_layouts"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Second pass re-reads the other writer's document and lands on top of it.
	rebased := someSeats()
	rebased[1].Status = types.SEAT_OCCUPIED
	written := &documentArg{doc: &types.SeatDocument{}}
	mock.
		ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
		WillReturnRows(layoutRows(t, 4, rebased))
	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE "venue_layouts"`).
		WithArgs(written, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpdateStatus("la-plaza", []types.SeatStatusUpdate{
		{SeatID: "s1", Status: types.SEAT_OCCUPIED},
	})
	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())

	// The landed document holds the union of both writers' updates.
	statuses := map[string]types.SeatStatus{}
	for _, seat := range written.doc.CreatedSeats {
		statuses[seat.ID] = seat.Status
	}
	assert.Equal(t, types.SEAT_OCCUPIED, statuses["s1"])
	assert.Equal(t, types.SEAT_OCCUPIED, statuses["s2"])
}

func TestUpdateStatusConflictExhausted(t *testing.T) {
	d, mock := newMockDB()
	store := &Store{db: d, maxRetries: 1}

	mock.
		ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
		WillReturnRows(layoutRows(t, 7, someSeats()))
	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE "venue_layouts"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.UpdateStatus("la-plaza", []types.SeatStatusUpdate{
		{SeatID: "s1", Status: types.SEAT_SOLD},
	})
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestValidateAvailability(t *testing.T) {
	d, mock := newMockDB()
	store := NewStore(d)

	mock.
		ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
		WillReturnRows(layoutRows(t, 1, someSeats()))

	available, unavailable, err := store.ValidateAvailability("la-plaza", []string{"s1", "s2", "s3", "ghost"})
	assert.Nil(t, err)
	assert.Equal(t, []string{"s1"}, available)
	assert.Equal(t, []string{"s2", "s3", "ghost"}, unavailable)
}

func TestUpdateStatusIgnoresUnknownSeats(t *testing.T) {
	d, mock := newMockDB()
	store := NewStore(d)

	mock.
		ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
		WillReturnRows(layoutRows(t, 1, someSeats()))
	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE "venue_layouts"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpdateStatus("la-plaza", []types.SeatStatusUpdate{
		{SeatID: "ghost", Status: types.SEAT_SOLD},
	})
	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}
