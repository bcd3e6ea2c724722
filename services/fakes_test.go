package services_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptrInt(v int) *int               { return &v }
func ptrFloat(v float64) *float64     { return &v }
func ptrString(v string) *string      { return &v }
func ptrSex(v models.Sex) *models.Sex { return &v }

// txExec — исполнитель, который fakeTxRunner передает в fn. Сам он запросов
// не выполняет: фейковые репозитории записывают каждую запись вместе с
// полученным исполнителем, и тесты видят, какие операции действительно шли
// через транзакцию.
var txExec repositories.SQLExecutor = sentinelExec{}

type sentinelExec struct{}

func (sentinelExec) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("sentinel executor does not reach a database")
}

func (sentinelExec) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("sentinel executor does not reach a database")
}

func (sentinelExec) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(txExec)
}

// writeLog накапливает записи фейковых репозиториев: имя операции плюс
// область выполнения — "tx" для транзакционного исполнителя, "conn" для
// обычного соединения.
type writeLog struct {
	entries []string
}

func (l *writeLog) record(op string, exec repositories.SQLExecutor) {
	if l == nil {
		return
	}
	scope := "conn"
	if exec == txExec {
		scope = "tx"
	}
	l.entries = append(l.entries, op+"/"+scope)
}

type fakeDancerRepo struct {
	dancers []*models.Dancer
	nextID  int
	log     *writeLog
}

func newFakeDancerRepo() *fakeDancerRepo {
	return &fakeDancerRepo{nextID: 1}
}

func (r *fakeDancerRepo) add(dancer models.Dancer) *models.Dancer {
	d := dancer
	if d.ID == 0 {
		d.ID = r.nextID
	}
	if d.ID >= r.nextID {
		r.nextID = d.ID + 1
	}
	r.dancers = append(r.dancers, &d)
	return &d
}

func (r *fakeDancerRepo) find(id int) *models.Dancer {
	for _, d := range r.dancers {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (r *fakeDancerRepo) Create(ctx context.Context, dancer *models.Dancer) error {
	stored := r.add(*dancer)
	dancer.ID = stored.ID
	return nil
}

func (r *fakeDancerRepo) GetByID(ctx context.Context, id int) (*models.Dancer, error) {
	d := r.find(id)
	if d == nil {
		return nil, repositories.ErrDancerNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *fakeDancerRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dancer, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeDancerRepo) List(ctx context.Context) ([]models.Dancer, error) {
	out := make([]models.Dancer, 0, len(r.dancers))
	for _, d := range r.dancers {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDancerRepo) ListCompatible(ctx context.Context, dancerID int, sex models.Sex, style *string) ([]models.Dancer, error) {
	sameStyle := func(a, b *string) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return *a == *b
	}
	out := make([]models.Dancer, 0)
	for _, d := range r.dancers {
		if d.ID == dancerID || d.Sex == sex || d.Status != models.StatusInSearch {
			continue
		}
		if !sameStyle(d.Style, style) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDancerRepo) Update(ctx context.Context, dancer *models.Dancer) error {
	d := r.find(dancer.ID)
	if d == nil {
		return repositories.ErrDancerNotFound
	}
	status := d.Status
	*d = *dancer
	d.Status = status
	return nil
}

func (r *fakeDancerRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.DancerStatus) error {
	r.log.record(fmt.Sprintf("dancer.UpdateStatus(%d)", id), exec)
	d := r.find(id)
	if d == nil {
		return repositories.ErrDancerNotFound
	}
	d.Status = status
	return nil
}

func (r *fakeDancerRepo) UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error {
	d := r.find(id)
	if d == nil {
		return repositories.ErrDancerNotFound
	}
	d.PhotoKey = photoKey
	return nil
}

func (r *fakeDancerRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.log.record(fmt.Sprintf("dancer.Delete(%d)", id), exec)
	for i, d := range r.dancers {
		if d.ID == id {
			r.dancers = append(r.dancers[:i], r.dancers[i+1:]...)
			return nil
		}
	}
	return repositories.ErrDancerNotFound
}

type fakeRequestRepo struct {
	requests []*models.Request
	nextID   int
	log      *writeLog
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{nextID: 1}
}

func (r *fakeRequestRepo) add(request models.Request) *models.Request {
	req := request
	if req.ID == 0 {
		req.ID = r.nextID
	}
	if req.ID >= r.nextID {
		r.nextID = req.ID + 1
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	r.requests = append(r.requests, &req)
	return &req
}

func (r *fakeRequestRepo) find(id int) *models.Request {
	for _, req := range r.requests {
		if req.ID == id {
			return req
		}
	}
	return nil
}

func (r *fakeRequestRepo) Create(ctx context.Context, request *models.Request) error {
	stored := r.add(*request)
	request.ID = stored.ID
	request.CreatedAt = stored.CreatedAt
	return nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, id int) (*models.Request, error) {
	req := r.find(id)
	if req == nil {
		return nil, repositories.ErrRequestNotFound
	}
	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepo) List(ctx context.Context) ([]models.Request, error) {
	out := make([]models.Request, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, *req)
	}
	return out, nil
}

func (r *fakeRequestRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RequestStatus) error {
	r.log.record(fmt.Sprintf("request.UpdateStatus(%d)", id), exec)
	req := r.find(id)
	if req == nil {
		return repositories.ErrRequestNotFound
	}
	req.Status = status
	return nil
}

func (r *fakeRequestRepo) Delete(ctx context.Context, id int) error {
	for i, req := range r.requests {
		if req.ID == id {
			r.requests = append(r.requests[:i], r.requests[i+1:]...)
			return nil
		}
	}
	return repositories.ErrRequestNotFound
}

func (r *fakeRequestRepo) DeleteByDancer(ctx context.Context, exec repositories.SQLExecutor, dancerID int) error {
	r.log.record(fmt.Sprintf("request.DeleteByDancer(%d)", dancerID), exec)
	kept := r.requests[:0]
	for _, req := range r.requests {
		if req.SenderID != dancerID && req.ReceiverID != dancerID {
			kept = append(kept, req)
		}
	}
	r.requests = kept
	return nil
}

type fakePairRepo struct {
	pairs  []*models.Pair
	nextID int
	log    *writeLog
}

func newFakePairRepo() *fakePairRepo {
	return &fakePairRepo{nextID: 1}
}

func (r *fakePairRepo) add(pair models.Pair) *models.Pair {
	p := pair
	if p.ID == 0 {
		p.ID = r.nextID
	}
	if p.ID >= r.nextID {
		r.nextID = p.ID + 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.pairs = append(r.pairs, &p)
	return &p
}

func (r *fakePairRepo) Create(ctx context.Context, exec repositories.SQLExecutor, pair *models.Pair) error {
	r.log.record(fmt.Sprintf("pair.Create(%d,%d)", pair.Dancer1ID, pair.Dancer2ID), exec)
	stored := r.add(*pair)
	pair.ID = stored.ID
	pair.CreatedAt = stored.CreatedAt
	return nil
}

func (r *fakePairRepo) GetByID(ctx context.Context, id int) (*models.Pair, error) {
	for _, p := range r.pairs {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repositories.ErrPairNotFound
}

func (r *fakePairRepo) List(ctx context.Context) ([]models.Pair, error) {
	out := make([]models.Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePairRepo) ListByDancer(ctx context.Context, exec repositories.SQLExecutor, dancerID int) ([]models.Pair, error) {
	out := make([]models.Pair, 0)
	for _, p := range r.pairs {
		if p.ContainsDancer(dancerID) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePairRepo) ExistsForEither(ctx context.Context, exec repositories.SQLExecutor, dancer1ID, dancer2ID int) (bool, error) {
	for _, p := range r.pairs {
		if p.ContainsDancer(dancer1ID) || p.ContainsDancer(dancer2ID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePairRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.log.record(fmt.Sprintf("pair.Delete(%d)", id), exec)
	for i, p := range r.pairs {
		if p.ID == id {
			r.pairs = append(r.pairs[:i], r.pairs[i+1:]...)
			return nil
		}
	}
	return repositories.ErrPairNotFound
}

// fakePairFeed запоминает опубликованные события.
type fakePairFeed struct {
	formed    []models.Pair
	dissolved []models.Pair
}

func (f *fakePairFeed) PairFormed(pair models.Pair)    { f.formed = append(f.formed, pair) }
func (f *fakePairFeed) PairDissolved(pair models.Pair) { f.dissolved = append(f.dissolved, pair) }

// fakeRecommendationCache хранит записи в памяти и запоминает, кого
// инвалидировали.
type fakeRecommendationCache struct {
	entries     map[[2]int][]models.Dancer
	invalidated []int
	setCalls    int
	getCalls    int
}

func newFakeRecommendationCache() *fakeRecommendationCache {
	return &fakeRecommendationCache{entries: make(map[[2]int][]models.Dancer)}
}

func (c *fakeRecommendationCache) GetKNN(ctx context.Context, dancerID, k int) ([]models.Dancer, bool, error) {
	c.getCalls++
	dancers, ok := c.entries[[2]int{dancerID, k}]
	return dancers, ok, nil
}

func (c *fakeRecommendationCache) SetKNN(ctx context.Context, dancerID, k int, dancers []models.Dancer) error {
	c.setCalls++
	c.entries[[2]int{dancerID, k}] = dancers
	return nil
}

func (c *fakeRecommendationCache) InvalidateDancers(ctx context.Context, dancerIDs ...int) error {
	c.invalidated = append(c.invalidated, dancerIDs...)
	for _, id := range dancerIDs {
		for key := range c.entries {
			if key[0] == id {
				delete(c.entries, key)
			}
		}
	}
	return nil
}
