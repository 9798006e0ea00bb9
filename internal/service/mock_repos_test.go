package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
)

// fakeTx — транзакция-заглушка. In-memory репозитории игнорируют Querier,
// поэтому достаточно учёта Commit/Rollback.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}
func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

type fakeDB struct {
	lastTx *fakeTx
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	db.lastTx = &fakeTx{}
	return db.lastTx, nil
}

// memSlotRepo — слоты в памяти
type memSlotRepo struct {
	slots  map[int64]*model.AvailableSlot
	nextID int64

	// beforeMarkBooked имитирует параллельное бронирование между
	// чтением слота и check-and-set
	beforeMarkBooked func()
}

func newMemSlotRepo() *memSlotRepo {
	return &memSlotRepo{slots: make(map[int64]*model.AvailableSlot), nextID: 1}
}

func (r *memSlotRepo) add(slot *model.AvailableSlot) *model.AvailableSlot {
	slot.ID = r.nextID
	r.nextID++
	r.slots[slot.ID] = slot
	return slot
}

func (r *memSlotRepo) Create(ctx context.Context, slot *model.AvailableSlot) error {
	r.add(slot)
	return nil
}

func (r *memSlotRepo) CreateBatchTx(ctx context.Context, q repository.Querier, slots []*model.AvailableSlot) error {
	for _, slot := range slots {
		r.add(slot)
	}
	return nil
}

func (r *memSlotRepo) GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	return r.slots[id], nil
}

func (r *memSlotRepo) GetByIDForUpdateTx(ctx context.Context, q repository.Querier, id int64) (*model.AvailableSlot, error) {
	return r.slots[id], nil
}

func (r *memSlotRepo) List(ctx context.Context, filter repository.SlotFilter) ([]*model.AvailableSlot, error) {
	var out []*model.AvailableSlot
	for _, slot := range r.slots {
		if filter.TeacherID != 0 && slot.TeacherID != filter.TeacherID {
			continue
		}
		if filter.WeekStartDate != nil && !slot.WeekStartDate.Equal(*filter.WeekStartDate) {
			continue
		}
		if filter.AvailableOnly && slot.IsBooked {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *memSlotRepo) ListForWeekDay(ctx context.Context, teacherID int64, weekStart model.Date, dayOfWeek int) ([]*model.AvailableSlot, error) {
	var out []*model.AvailableSlot
	for _, slot := range r.slots {
		if slot.TeacherID == teacherID && slot.WeekStartDate.Equal(weekStart) && slot.DayOfWeek == dayOfWeek {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *memSlotRepo) ListForWeekDayTx(ctx context.Context, q repository.Querier, teacherID int64, weekStart model.Date, dayOfWeek int) ([]*model.AvailableSlot, error) {
	return r.ListForWeekDay(ctx, teacherID, weekStart, dayOfWeek)
}

func (r *memSlotRepo) MarkBookedTx(ctx context.Context, q repository.Querier, id int64) (bool, error) {
	if r.beforeMarkBooked != nil {
		r.beforeMarkBooked()
	}
	slot, ok := r.slots[id]
	if !ok || slot.IsBooked {
		return false, nil
	}
	slot.IsBooked = true
	return true, nil
}

func (r *memSlotRepo) MarkAvailableTx(ctx context.Context, q repository.Querier, id int64) error {
	slot, ok := r.slots[id]
	if !ok {
		return fmt.Errorf("slot not found")
	}
	slot.IsBooked = false
	return nil
}

func (r *memSlotRepo) Update(ctx context.Context, slot *model.AvailableSlot) error {
	if _, ok := r.slots[slot.ID]; !ok {
		return fmt.Errorf("slot not found")
	}
	r.slots[slot.ID] = slot
	return nil
}

func (r *memSlotRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.slots[id]; !ok {
		return fmt.Errorf("slot not found")
	}
	delete(r.slots, id)
	return nil
}

// memApptRepo — записи в памяти. Ссылка на слоты нужна для
// фильтрации по дате: как и продакшен, двойник берёт дату из слота.
type memApptRepo struct {
	appts  map[int64]*model.Appointment
	slots  *memSlotRepo
	nextID int64

	// confirmedForDay подставляется тестами напоминаний
	confirmedForDay []*model.Appointment
}

func newMemApptRepo(slots *memSlotRepo) *memApptRepo {
	return &memApptRepo{appts: make(map[int64]*model.Appointment), slots: slots, nextID: 1}
}

func (r *memApptRepo) CreateTx(ctx context.Context, q repository.Querier, appt *model.Appointment) error {
	appt.ID = r.nextID
	r.nextID++
	r.appts[appt.ID] = appt
	return nil
}

func (r *memApptRepo) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.appts[id], nil
}

func (r *memApptRepo) GetByIDForUpdateTx(ctx context.Context, q repository.Querier, id int64) (*model.Appointment, error) {
	return r.appts[id], nil
}

func (r *memApptRepo) GetActiveBySlotID(ctx context.Context, slotID int64) (*model.Appointment, error) {
	for _, appt := range r.appts {
		if appt.SlotID == slotID && appt.Status != model.AppointmentStatusCancelled {
			return appt, nil
		}
	}
	return nil, nil
}

func (r *memApptRepo) List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, appt := range r.appts {
		if filter.ParentID != 0 && appt.ParentID != filter.ParentID {
			continue
		}
		if filter.TeacherID != 0 && appt.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && appt.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil || filter.EndDate != nil {
			slot := r.slots.slots[appt.SlotID]
			if slot == nil {
				continue
			}
			date := slot.WeekStartDate.AddDays(slot.DayOfWeek)
			if filter.StartDate != nil && date.Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && date.After(*filter.EndDate) {
				continue
			}
		}
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListConfirmedForDay в продакшене соединяет записи со слотами; двойник
// отдаёт заранее заданный список, чтобы не таскать слоты внутрь репозитория
func (r *memApptRepo) ListConfirmedForDay(ctx context.Context, weekStart model.Date, dayOfWeek int) ([]*model.Appointment, error) {
	return r.confirmedForDay, nil
}

func (r *memApptRepo) CountByStatus(ctx context.Context, filter repository.AppointmentFilter) (map[model.AppointmentStatus]int, error) {
	counts := make(map[model.AppointmentStatus]int)
	appts, _ := r.List(ctx, repository.AppointmentFilter{ParentID: filter.ParentID, TeacherID: filter.TeacherID})
	for _, appt := range appts {
		counts[appt.Status]++
	}
	return counts, nil
}

func (r *memApptRepo) UpdateStatusTx(ctx context.Context, q repository.Querier, id int64, status model.AppointmentStatus) error {
	appt, ok := r.appts[id]
	if !ok {
		return fmt.Errorf("appointment not found")
	}
	appt.Status = status
	return nil
}

// memUserRepo — учётные записи в памяти
type memUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.users[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) List(ctx context.Context, skip, limit int) ([]*model.User, error) {
	var out []*model.User
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) Update(ctx context.Context, user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("user not found")
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int64) error {
	delete(r.users, id)
	return nil
}

// memParentRepo / memTeacherRepo — профили в памяти
type memParentRepo struct {
	parents map[int64]*model.Parent
}

func (r *memParentRepo) Create(ctx context.Context, parent *model.Parent) error {
	parent.ID = int64(len(r.parents) + 1)
	r.parents[parent.ID] = parent
	return nil
}
func (r *memParentRepo) GetByID(ctx context.Context, id int64) (*model.Parent, error) {
	return r.parents[id], nil
}
func (r *memParentRepo) GetByUserID(ctx context.Context, userID int64) (*model.Parent, error) {
	for _, p := range r.parents {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}
func (r *memParentRepo) List(ctx context.Context, skip, limit int) ([]*model.Parent, error) {
	var out []*model.Parent
	for _, p := range r.parents {
		out = append(out, p)
	}
	return out, nil
}
func (r *memParentRepo) Update(ctx context.Context, parent *model.Parent) error { return nil }
func (r *memParentRepo) Delete(ctx context.Context, id int64) error {
	delete(r.parents, id)
	return nil
}

type memTeacherRepo struct {
	teachers map[int64]*model.Teacher
}

func (r *memTeacherRepo) Create(ctx context.Context, teacher *model.Teacher) error {
	teacher.ID = int64(len(r.teachers) + 1)
	r.teachers[teacher.ID] = teacher
	return nil
}
func (r *memTeacherRepo) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	return r.teachers[id], nil
}
func (r *memTeacherRepo) GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error) {
	for _, t := range r.teachers {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, nil
}
func (r *memTeacherRepo) List(ctx context.Context, subject string, skip, limit int) ([]*model.Teacher, error) {
	var out []*model.Teacher
	for _, t := range r.teachers {
		if subject != "" && t.Subject != subject {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
func (r *memTeacherRepo) Update(ctx context.Context, teacher *model.Teacher) error { return nil }
func (r *memTeacherRepo) Delete(ctx context.Context, id int64) error {
	delete(r.teachers, id)
	return nil
}

// memNotificationRepo — outbox в памяти
type memNotificationRepo struct {
	items  map[int64]*model.Notification
	nextID int64
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{items: make(map[int64]*model.Notification), nextID: 1}
}

func (r *memNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	n.ID = r.nextID
	r.nextID++
	r.items[n.ID] = n
	return nil
}
func (r *memNotificationRepo) CreateTx(ctx context.Context, q repository.Querier, n *model.Notification) error {
	return r.Create(ctx, n)
}
func (r *memNotificationRepo) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	return r.items[id], nil
}
func (r *memNotificationRepo) List(ctx context.Context, skip, limit int) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.items {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
func (r *memNotificationRepo) ResetPending(ctx context.Context, id int64) error {
	n, ok := r.items[id]
	if !ok {
		return fmt.Errorf("notification not found")
	}
	n.Status = model.NotificationStatusPending
	return nil
}
func (r *memNotificationRepo) HasReminderFor(ctx context.Context, appointmentID int64) (bool, error) {
	for _, n := range r.items {
		if n.Type == model.NotificationAppointmentReminder && n.AppointmentID != nil && *n.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

// fakeQueue собирает отправленные в очередь ID
type fakeQueue struct {
	pushed  []int64
	failing bool
}

func (q *fakeQueue) Push(ctx context.Context, notificationID int64) error {
	if q.failing {
		return fmt.Errorf("queue unavailable")
	}
	q.pushed = append(q.pushed, notificationID)
	return nil
}
