package expense

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/common"
)

type fakeQuerier struct {
	rows map[string]Row
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{rows: map[string]Row{}}
}

func key(id pgtype.UUID) string {
	u, _ := uuid.FromBytes(id.Bytes[:])
	return u.String()
}

func (f *fakeQuerier) ListExpenses(context.Context) ([]Row, error) {
	var out []Row
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeQuerier) GetExpense(_ context.Context, id pgtype.UUID) (Row, error) {
	row, ok := f.rows[key(id)]
	if !ok {
		return Row{}, pgx.ErrNoRows
	}
	return row, nil
}

func (f *fakeQuerier) CreateExpense(_ context.Context, arg Params) (Row, error) {
	row := Row{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Name:        arg.Name,
		Category:    arg.Category,
		Amount:      arg.Amount,
		Description: arg.Description,
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
		UpdatedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.rows[key(row.ID)] = row
	return row, nil
}

func (f *fakeQuerier) UpdateExpense(_ context.Context, id pgtype.UUID, arg Params) (Row, error) {
	row, ok := f.rows[key(id)]
	if !ok {
		return Row{}, pgx.ErrNoRows
	}
	row.Name = arg.Name
	row.Category = arg.Category
	row.Amount = arg.Amount
	row.Description = arg.Description
	f.rows[key(id)] = row
	return row, nil
}

func (f *fakeQuerier) DeleteExpense(_ context.Context, id pgtype.UUID) error {
	if _, ok := f.rows[key(id)]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.rows, key(id))
	return nil
}

func TestCreateExpenseAttributesSessionUser(t *testing.T) {
	q := newFakeQuerier()
	svc, err := NewService(q)
	require.NoError(t, err)

	session := common.Session{UserID: uuid.NewString(), Role: "admin"}
	record, err := svc.Create(context.Background(), session, Input{
		Name:     "August shop rent",
		Category: "Rent",
		Amount:   45000,
	})
	require.NoError(t, err)
	require.Equal(t, session.UserID, record.CreatedBy)
	require.Equal(t, "Rent", record.Category)
}

func TestCreateExpenseRejectsUnknownCategory(t *testing.T) {
	svc, err := NewService(newFakeQuerier())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), common.Session{}, Input{
		Name:     "Mystery",
		Category: "Bribes",
		Amount:   100,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	q := newFakeQuerier()
	svc, err := NewService(q)
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), common.Session{}, Input{
		Name:     "Delivery fuel",
		Category: "Transportation",
		Amount:   2500,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, Input{
		Name:     "Delivery fuel",
		Category: "Transportation",
		Amount:   3000,
	})
	require.NoError(t, err)
	require.InDelta(t, 3000.0, updated.Amount, 1e-9)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	err = svc.Delete(context.Background(), created.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}
