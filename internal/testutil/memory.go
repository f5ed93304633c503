// Пакет testutil — in-memory реализации репозиториев для unit-тестов
// сервисного слоя и HTTP-обработчиков.
package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/carecenter/governance-core/internal/domain/classification"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/exportflow"
	"github.com/bigkaa/carecenter/governance-core/internal/domain/model"
	"github.com/bigkaa/carecenter/governance-core/internal/repository"
)

// --- Принципалы ---

// Principals — in-memory PrincipalRepository и RoleOverrideRepository.
type Principals struct {
	mu        sync.Mutex
	items     map[string]*model.IdentityPrincipal
	overrides map[string]*model.RoleOverride
	// Err — ошибка, возвращаемая всеми методами (имитация недоступности)
	Err error
}

// NewPrincipals создаёт пустое хранилище принципалов.
func NewPrincipals() *Principals {
	return &Principals{
		items:     make(map[string]*model.IdentityPrincipal),
		overrides: make(map[string]*model.RoleOverride),
	}
}

// Put добавляет активного принципала с ролью.
func (p *Principals) Put(id, role string) {
	_ = p.Upsert(context.Background(), &model.IdentityPrincipal{ID: id, Username: id, Role: role, Active: true})
}

// SetRole меняет роль принципала.
func (p *Principals) SetRole(id, role string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if it, ok := p.items[id]; ok {
		it.Role = role
	}
}

func (p *Principals) Get(_ context.Context, id string) (*model.IdentityPrincipal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	it, ok := p.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (p *Principals) Upsert(_ context.Context, ip *model.IdentityPrincipal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	cp := *ip
	p.items[ip.ID] = &cp
	return nil
}

// Overrides возвращает RoleOverrideRepository поверх того же хранилища.
func (p *Principals) Overrides() repository.RoleOverrideRepository {
	return (*principalOverrides)(p)
}

type principalOverrides Principals

func (o *principalOverrides) GetByPrincipalID(_ context.Context, principalID string) (*model.RoleOverride, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	ro, ok := o.overrides[principalID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ro
	return &cp, nil
}

func (o *principalOverrides) Upsert(_ context.Context, ro *model.RoleOverride) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := *ro
	o.overrides[ro.PrincipalID] = &cp
	return nil
}

func (o *principalOverrides) Delete(_ context.Context, principalID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.overrides[principalID]; !ok {
		return repository.ErrNotFound
	}
	delete(o.overrides, principalID)
	return nil
}

// --- Сессии ---

// Sessions — in-memory SessionRepository.
type Sessions struct {
	mu    sync.Mutex
	items map[string]*model.Session
	// Err — ошибка, возвращаемая всеми методами
	Err error
}

// NewSessions создаёт пустое хранилище сессий.
func NewSessions() *Sessions {
	return &Sessions{items: make(map[string]*model.Session)}
}

func (s *Sessions) Create(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.items[sess.ID]; ok {
		return repository.ErrConflict
	}
	cp := *sess
	s.items[sess.ID] = &cp
	return nil
}

func (s *Sessions) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *Sessions) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	it, ok := s.items[id]
	if !ok || !it.IsActive() {
		return repository.ErrNotFound
	}
	it.LastValidatedAt = at
	return nil
}

func (s *Sessions) Invalidate(_ context.Context, id, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	it, ok := s.items[id]
	if !ok || !it.IsActive() {
		return false, nil
	}
	it.State = model.SessionInvalidated
	it.InvalidationReason = reason
	it.InvalidatedAt = &at
	return true, nil
}

// SetLastValidated сдвигает время последней проверки (для тестов таймаута).
func (s *Sessions) SetLastValidated(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.LastValidatedAt = at
	}
}

// --- Инциденты ---

// Incidents — in-memory IncidentRepository.
type Incidents struct {
	mu    sync.Mutex
	items []*model.Incident
	// Err — ошибка, возвращаемая Append
	Err error
}

// NewIncidents создаёт пустой журнал инцидентов.
func NewIncidents() *Incidents {
	return &Incidents{}
}

func (l *Incidents) Append(_ context.Context, inc *model.Incident) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	cp := *inc
	l.items = append(l.items, &cp)
	return nil
}

func (l *Incidents) List(_ context.Context, f model.IncidentFilter) ([]*model.Incident, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*model.Incident
	for i := len(l.items) - 1; i >= 0; i-- {
		inc := l.items[i]
		if f.Type != "" && inc.Type != f.Type {
			continue
		}
		if f.PrincipalID != "" && inc.PrincipalID != f.PrincipalID {
			continue
		}
		if f.Since != nil && inc.DetectedAt.Before(*f.Since) {
			continue
		}
		cp := *inc
		out = append(out, &cp)
	}
	return page(out, f.Limit, f.Offset), nil
}

// Count возвращает число инцидентов указанного типа.
func (l *Incidents) Count(t model.IncidentType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, inc := range l.items {
		if inc.Type == t {
			n++
		}
	}
	return n
}

// All возвращает копию журнала.
func (l *Incidents) All() []*model.Incident {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.Incident(nil), l.items...)
}

// --- Заявки на экспорт ---

// Exports — in-memory ExportRequestRepository. UpdateLocked сериализуется мьютексом.
type Exports struct {
	lockMu sync.Mutex
	mu     sync.Mutex
	items  map[string]*model.ExportRequest
}

// NewExports создаёт пустое хранилище заявок.
func NewExports() *Exports {
	return &Exports{items: make(map[string]*model.ExportRequest)}
}

func cloneExport(r *model.ExportRequest) *model.ExportRequest {
	cp := *r
	cp.Tables = append([]string(nil), r.Tables...)
	cp.Filters = make(map[string]string, len(r.Filters))
	for k, v := range r.Filters {
		cp.Filters[k] = v
	}
	return &cp
}

func (e *Exports) Create(_ context.Context, req *model.ExportRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.items[req.ID]; ok {
		return repository.ErrConflict
	}
	e.items[req.ID] = cloneExport(req)
	return nil
}

func (e *Exports) Get(_ context.Context, id string) (*model.ExportRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneExport(r), nil
}

func (e *Exports) List(_ context.Context, f model.ExportFilter) ([]*model.ExportRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*model.ExportRequest
	for _, r := range e.items {
		if f.RequesterID != "" && r.RequesterID != f.RequesterID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, cloneExport(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (e *Exports) UpdateLocked(ctx context.Context, id string, fn func(req *model.ExportRequest) error) (*model.ExportRequest, error) {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()

	cur, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(cur); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	stored := e.items[id]
	stored.Status = cur.Status
	stored.DecidedAt = cur.DecidedAt
	stored.DecidedBy = cur.DecidedBy
	stored.DecisionNotes = cur.DecisionNotes
	stored.ExecutedAt = cur.ExecutedAt
	return cloneExport(stored), nil
}

func (e *Exports) ExpirePending(_ context.Context, now time.Time) (int, error) {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, r := range e.items {
		if r.Status == exportflow.StatusPending && r.ExpiresAt.Before(now) {
			r.Status = exportflow.StatusExpired
			n++
		}
	}
	return n, nil
}

// Raw возвращает хранимую запись без эффекта ленивого истечения.
func (e *Exports) Raw(id string) *model.ExportRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.items[id]; ok {
		return cloneExport(r)
	}
	return nil
}

// --- Классификации ---

// Classifications — in-memory ClassificationRepository.
type Classifications struct {
	mu    sync.Mutex
	items map[string]*model.ClassificationEntry
	// Reads — число обращений на чтение по таблице (для проверки кэша)
	Reads int
}

// NewClassifications создаёт реестр с указанными записями.
func NewClassifications(entries ...*model.ClassificationEntry) *Classifications {
	c := &Classifications{items: make(map[string]*model.ClassificationEntry)}
	for _, e := range entries {
		cp := *e
		c.items[e.Field()] = &cp
	}
	return c
}

func (c *Classifications) Get(_ context.Context, table, column string) (*model.ClassificationEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[table+"."+column]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (c *Classifications) ListByTable(_ context.Context, table string) ([]*model.ClassificationEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reads++
	var out []*model.ClassificationEntry
	for _, e := range c.items {
		if e.Table == table {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out, nil
}

func (c *Classifications) List(_ context.Context) ([]*model.ClassificationEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.ClassificationEntry, 0, len(c.items))
	for _, e := range c.items {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field() < out[j].Field() })
	return out, nil
}

func (c *Classifications) Upsert(_ context.Context, e *model.ClassificationEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *e
	c.items[e.Field()] = &cp
	return nil
}

func (c *Classifications) SeedIfAbsent(_ context.Context, entries []*model.ClassificationEntry) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range entries {
		if _, ok := c.items[e.Field()]; ok {
			continue
		}
		cp := *e
		c.items[e.Field()] = &cp
		n++
	}
	return n, nil
}

// --- Журнал выгрузок ---

// Activity — in-memory ActivityRepository.
type Activity struct {
	mu    sync.Mutex
	items []*model.DownloadActivity
}

// NewActivity создаёт пустой журнал выгрузок.
func NewActivity() *Activity {
	return &Activity{}
}

func (a *Activity) Append(_ context.Context, d *model.DownloadActivity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := *d
	a.items = append(a.items, &cp)
	return nil
}

func (a *Activity) CountSince(_ context.Context, userID string, levels []classification.Level, since time.Time) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, d := range a.items {
		if d.UserID != userID || d.DownloadedAt.Before(since) {
			continue
		}
		for _, l := range levels {
			if d.DataClassification == l {
				n++
				break
			}
		}
	}
	return n, nil
}

func (a *Activity) List(_ context.Context, f model.ActivityFilter) ([]*model.DownloadActivity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*model.DownloadActivity
	for i := len(a.items) - 1; i >= 0; i-- {
		d := a.items[i]
		if f.UserID != "" && d.UserID != f.UserID {
			continue
		}
		if f.SuspiciousOnly && !d.SuspiciousFlag {
			continue
		}
		if f.Since != nil && d.DownloadedAt.Before(*f.Since) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return page(out, f.Limit, f.Offset), nil
}

// --- Политики хранения ---

// Retention — in-memory RetentionRepository. Строки таблиц хранятся
// как map с меткой времени в столбце политики.
type Retention struct {
	mu       sync.Mutex
	policies map[string]*model.RetentionPolicy
	tables   map[string][]map[string]any
	// FailTables — таблицы, очистка которых завершается ошибкой
	FailTables map[string]error
}

// NewRetention создаёт хранилище с политиками.
func NewRetention(policies ...*model.RetentionPolicy) *Retention {
	r := &Retention{
		policies:   make(map[string]*model.RetentionPolicy),
		tables:     make(map[string][]map[string]any),
		FailTables: make(map[string]error),
	}
	for _, p := range policies {
		cp := *p
		r.policies[p.PolicyName] = &cp
	}
	return r
}

// AddRow добавляет строку в таблицу.
func (r *Retention) AddRow(table string, row map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table] = append(r.tables[table], row)
}

// Rows возвращает число строк таблицы.
func (r *Retention) Rows(table string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tables[table])
}

func (r *Retention) ListPolicies(_ context.Context) ([]*model.RetentionPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.RetentionPolicy, 0, len(r.policies))
	for _, p := range r.policies {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyName < out[j].PolicyName })
	return out, nil
}

func (r *Retention) GetPolicy(_ context.Context, name string) (*model.RetentionPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Retention) UpsertPolicy(_ context.Context, p *model.RetentionPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, other := range r.policies {
		if name != p.PolicyName && other.Table == p.Table {
			return repository.ErrConflict
		}
	}
	cp := *p
	r.policies[p.PolicyName] = &cp
	return nil
}

func (r *Retention) Purge(ctx context.Context, p *model.RetentionPolicy, cutoff, now time.Time, archive repository.ArchiveFunc) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailTables[p.Table]; err != nil {
		return 0, err
	}

	var keep []map[string]any
	var removed []json.RawMessage
	for _, row := range r.tables[p.Table] {
		ts, ok := row[p.TimestampColumn].(time.Time)
		if ok && ts.Before(cutoff) {
			raw, err := json.Marshal(row)
			if err != nil {
				return 0, err
			}
			removed = append(removed, raw)
			continue
		}
		keep = append(keep, row)
	}

	if archive != nil && len(removed) > 0 {
		if err := archive(ctx, removed); err != nil {
			// Откат: таблица и last_executed_at не меняются
			return 0, err
		}
	}
	r.tables[p.Table] = keep
	if stored, ok := r.policies[p.PolicyName]; ok {
		stored.LastExecutedAt = &now
	}
	return len(removed), nil
}

// --- Источник экспорта ---

// ExportSource — in-memory ExportSource.
type ExportSource struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

// NewExportSource создаёт источник с пустыми таблицами.
func NewExportSource() *ExportSource {
	return &ExportSource{tables: make(map[string][]map[string]any)}
}

// Add добавляет строку таблицы.
func (s *ExportSource) Add(table string, row map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], row)
}

func (s *ExportSource) ReadTable(_ context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok || repository.IsGovernanceTable(table) {
		return nil, repository.ErrNotFound
	}
	var out []map[string]any
	for _, row := range rows {
		match := true
		for col, want := range filters {
			v, ok := row[col]
			if !ok {
				return nil, repository.ErrUnknownColumn
			}
			if s, _ := v.(string); s != want {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Проверка соответствия интерфейсам.
var (
	_ repository.PrincipalRepository      = (*Principals)(nil)
	_ repository.RoleOverrideRepository   = (*principalOverrides)(nil)
	_ repository.SessionRepository        = (*Sessions)(nil)
	_ repository.IncidentRepository       = (*Incidents)(nil)
	_ repository.ExportRequestRepository  = (*Exports)(nil)
	_ repository.ClassificationRepository = (*Classifications)(nil)
	_ repository.ActivityRepository       = (*Activity)(nil)
	_ repository.RetentionRepository      = (*Retention)(nil)
	_ repository.ExportSource             = (*ExportSource)(nil)
)
