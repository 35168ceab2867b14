package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/metrics"
)

type memSignupRepo struct {
	mu    sync.Mutex
	rows  map[string]*domain.Signup
	saves int

	// 按 Save 调用序号（从 1 开始）注入失败
	calls     int
	failOn    map[int]error
	lostAckOn map[int]bool // 写入成功但向调用方返回错误
}

var errConnReset = errors.New("mysql: connection reset")

func newMemSignupRepo() *memSignupRepo {
	return &memSignupRepo{rows: make(map[string]*domain.Signup)}
}

func cloneSignup(s *domain.Signup) *domain.Signup {
	c := *s
	if s.Cake != nil {
		cake := *s.Cake
		c.Cake = &cake
	}
	if s.Ringba != nil {
		ringba := *s.Ringba
		c.Ringba = &ringba
	}
	c.ClearDomainEvents()
	return &c
}

func (r *memSignupRepo) Save(_ context.Context, s *domain.Signup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err, ok := r.failOn[r.calls]; ok {
		return err
	}
	if cur, ok := r.rows[s.SignupID]; ok && cur.Version() != s.Version() {
		return domain.ErrConcurrentUpdate
	}
	if r.lostAckOn[r.calls] {
		stored := cloneSignup(s)
		stored.SetVersion(s.Version() + 1)
		r.rows[s.SignupID] = stored
		r.saves++
		return errConnReset
	}
	s.SetVersion(s.Version() + 1)
	r.rows[s.SignupID] = cloneSignup(s)
	r.saves++
	return nil
}

func (r *memSignupRepo) Get(_ context.Context, id string) (*domain.Signup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrSignupNotFound
	}
	return cloneSignup(s), nil
}

func (r *memSignupRepo) List(_ context.Context, f domain.SignupFilter) ([]*domain.Signup, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Signup
	for _, s := range r.rows {
		if f.ApplicationType != "" && s.ApplicationType != f.ApplicationType {
			continue
		}
		if f.GlobalStatus != "" && s.GlobalStatus != f.GlobalStatus {
			continue
		}
		all = append(all, cloneSignup(s))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SignupID < all[j].SignupID })
	total := int64(len(all))
	if f.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

// failSaves 跳过接下来的 skip 次 Save 后，令随后 n 次返回 err
func (r *memSignupRepo) failSaves(skip, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == nil {
		r.failOn = make(map[int]error)
	}
	for i := 1; i <= n; i++ {
		r.failOn[r.calls+skip+i] = err
	}
}

// loseAck 跳过 skip 次 Save 后，下一次写入成功但返回错误
func (r *memSignupRepo) loseAck(skip int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lostAckOn == nil {
		r.lostAckOn = make(map[int]bool)
	}
	r.lostAckOn[r.calls+skip+1] = true
}

func (r *memSignupRepo) put(s *domain.Signup) {
	if err := r.Save(context.Background(), s); err != nil {
		panic(err)
	}
}

type memNoteRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*domain.Note
}

func newMemNoteRepo() *memNoteRepo {
	return &memNoteRepo{rows: make(map[uint]*domain.Note)}
}

func (r *memNoteRepo) Save(_ context.Context, n *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == 0 {
		r.nextID++
		n.ID = r.nextID
	}
	c := *n
	r.rows[n.ID] = &c
	return nil
}

func (r *memNoteRepo) Get(_ context.Context, id uint) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	c := *n
	return &c, nil
}

func (r *memNoteRepo) ListBySignup(_ context.Context, signupID string) ([]*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Note
	for _, n := range r.rows {
		if n.SignupID == signupID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memNoteRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNoteNotFound
	}
	delete(r.rows, id)
	return nil
}

type memFormRepo struct {
	mu    sync.Mutex
	forms map[domain.Provider]*domain.QAForm
}

func newMemFormRepo() *memFormRepo {
	return &memFormRepo{forms: make(map[domain.Provider]*domain.QAForm)}
}

func (r *memFormRepo) ActiveForm(_ context.Context, p domain.Provider) (*domain.QAForm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forms[p], nil
}

func (r *memFormRepo) SaveActive(_ context.Context, f *domain.QAForm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = uint(len(r.forms) + 1)
	r.forms[f.Provider] = f
	return nil
}

// stubProvisioner 按调用顺序返回预设结果
type stubProvisioner struct {
	mu       sync.Mutex
	provider domain.Provider
	results  []stubResult
	calls    int
	lastCtx  context.Context
}

type stubResult struct {
	id    string
	err   error
	block bool
}

func (p *stubProvisioner) Provider() domain.Provider { return p.provider }

func (p *stubProvisioner) Provision(ctx context.Context, _ string, _ domain.ApplicationData) (string, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.lastCtx = ctx
	p.mu.Unlock()

	r := stubResult{err: errors.New("no stubbed result")}
	if idx < len(p.results) {
		r = p.results[idx]
	}
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.id, r.err
}

func (p *stubProvisioner) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	locks  int
	denied bool
}

func (l *fakeLocker) Lock(_ context.Context, id string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.denied || l.held[id] {
		return nil, domain.ErrLockNotAcquired
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	l.held[id] = true
	l.locks++
	return func() {
		l.mu.Lock()
		delete(l.held, id)
		l.mu.Unlock()
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if p.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) has(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

type fixture struct {
	signups   *memSignupRepo
	notes     *memNoteRepo
	forms     *memFormRepo
	cake      *stubProvisioner
	ringba    *stubProvisioner
	locker    *fakeLocker
	publisher *recordingPublisher
	svc       *SignupApplicationService
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		signups:   newMemSignupRepo(),
		notes:     newMemNoteRepo(),
		forms:     newMemFormRepo(),
		cake:      &stubProvisioner{provider: domain.ProviderCake},
		ringba:    &stubProvisioner{provider: domain.ProviderRingba},
		locker:    &fakeLocker{},
		publisher: &recordingPublisher{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewDefaultMetricsCollector(metrics.New("test"))
	f.svc = NewSignupApplicationService(
		f.signups, f.notes, f.forms,
		[]domain.Provisioner{f.cake, f.ringba},
		f.locker, f.publisher, collector, logger, opts,
	)
	return f
}

func (f *fixture) seed(id string, t domain.ApplicationType) *domain.Signup {
	s := domain.NewSignup(id, t, domain.ApplicationData{CompanyName: "Acme Leads", ContactName: "Jo", Email: "jo@acme.test"})
	s.ClearDomainEvents()
	f.signups.put(s)
	return s
}

func (f *fixture) load(id string) *domain.Signup {
	s, err := f.signups.Get(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return s
}
