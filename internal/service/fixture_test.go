package service

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asquebay/order-stats-service/internal/config"
	"github.com/asquebay/order-stats-service/internal/lib/logger"
	"github.com/asquebay/order-stats-service/internal/model"
	"github.com/asquebay/order-stats-service/internal/repository/cache"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC)

// fixtureRepo — StatsRepository поверх срезов сущностей со счётчиком вызовов
type fixtureRepo struct {
	mu       sync.Mutex
	orders   []model.Order
	users    []model.User
	items    []model.OrderItem
	products []model.Product

	calls   map[string]int
	failOn  map[string]error
	blockOn string
}

func newFixture() *fixtureRepo {
	return &fixtureRepo{
		calls:  map[string]int{},
		failOn: map[string]error{},
	}
}

func (f *fixtureRepo) hit(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls[name]++
	err := f.failOn[name]
	block := f.blockOn == name
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fixtureRepo) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fixtureRepo) addUser(id int64, name, matricule, administration string) {
	u := model.User{ID: id, Name: name, Status: "active"}
	if matricule != "" {
		u.Matricule = &matricule
	}
	if administration != "" {
		u.Administration = &administration
	}
	f.users = append(f.users, u)
}

func (f *fixtureRepo) addOrder(id, userID int64, status model.OrderStatus, delivered bool, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, model.Order{
		ID: id, UserID: userID, Status: status, Delivered: delivered, CreatedAt: createdAt,
	})
}

func (f *fixtureRepo) userByID(id int64) (model.User, bool) {
	for _, u := range f.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

func (f *fixtureRepo) CountOrders(ctx context.Context) (int64, error) {
	if err := f.hit(ctx, "CountOrders"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.orders)), nil
}

func (f *fixtureRepo) CountOrdersWithStatus(ctx context.Context, status model.OrderStatus) (int64, error) {
	if err := f.hit(ctx, "CountOrdersWithStatus"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, o := range f.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fixtureRepo) CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	if err := f.hit(ctx, "CountOrdersByStatus"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[model.OrderStatus]int64{}
	for _, o := range f.orders {
		out[o.Status]++
	}
	return out, nil
}

func (f *fixtureRepo) CountDelivered(ctx context.Context) (int64, int64, error) {
	if err := f.hit(ctx, "CountDelivered"); err != nil {
		return 0, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var delivered int64
	for _, o := range f.orders {
		if o.IsDelivered() {
			delivered++
		}
	}
	return int64(len(f.orders)), delivered, nil
}

func (f *fixtureRepo) DeliveredByAdministration(ctx context.Context) ([]model.LabelCount, error) {
	if err := f.hit(ctx, "DeliveredByAdministration"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int64{}
	for _, o := range f.orders {
		if !o.IsDelivered() {
			continue
		}
		u, ok := f.userByID(o.UserID)
		if !ok || u.Administration == nil || strings.TrimSpace(*u.Administration) == "" {
			continue
		}
		counts[*u.Administration]++
	}
	return sortedCounts(counts), nil
}

func (f *fixtureRepo) DeliveredByUser(ctx context.Context) ([]model.UserDeliveryCount, error) {
	if err := f.hit(ctx, "DeliveredByUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	byUser := map[int64]*model.UserDeliveryCount{}
	for _, o := range f.orders {
		if !o.IsDelivered() {
			continue
		}
		u, ok := f.userByID(o.UserID)
		if !ok {
			continue
		}
		row, ok := byUser[u.ID]
		if !ok {
			row = &model.UserDeliveryCount{UserID: u.ID, Name: u.Name}
			if u.Matricule != nil {
				row.Matricule = *u.Matricule
			}
			if u.Administration != nil {
				row.Administration = *u.Administration
			}
			byUser[u.ID] = row
		}
		row.Count++
	}
	out := make([]model.UserDeliveryCount, 0, len(byUser))
	for _, row := range byUser {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b model.UserDeliveryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (f *fixtureRepo) DeliveredProductQuantities(ctx context.Context, limit int) ([]model.LabelCount, error) {
	if err := f.hit(ctx, "DeliveredProductQuantities"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delivered := map[int64]bool{}
	for _, o := range f.orders {
		if o.IsDelivered() {
			delivered[o.ID] = true
		}
	}
	names := map[int64]string{}
	for _, p := range f.products {
		names[p.ID] = p.Name
	}
	qty := map[string]int64{}
	for _, it := range f.items {
		if delivered[it.OrderID] {
			qty[names[it.ProductID]] += it.Quantity
		}
	}
	out := sortedCounts(qty)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fixtureRepo) OrdersCreatedPerDay(ctx context.Context, since time.Time, tz string) ([]model.DayCount, error) {
	if err := f.hit(ctx, "OrdersCreatedPerDay"); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	byDay := map[string]int64{}
	for _, o := range f.orders {
		if o.CreatedAt.Before(since) {
			continue
		}
		byDay[o.CreatedAt.In(loc).Format(time.DateOnly)]++
	}
	out := make([]model.DayCount, 0, len(byDay))
	for day, n := range byDay {
		d, _ := time.Parse(time.DateOnly, day)
		out = append(out, model.DayCount{Day: d, Count: n})
	}
	slices.SortFunc(out, func(a, b model.DayCount) int { return a.Day.Compare(b.Day) })
	return out, nil
}

func sortedCounts(m map[string]int64) []model.LabelCount {
	out := make([]model.LabelCount, 0, len(m))
	for label, n := range m {
		out = append(out, model.LabelCount{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b model.LabelCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

func testStatsConfig() config.Stats {
	return config.Stats{
		QueryTimeout:        time.Second,
		DefaultTTL:          30 * time.Minute,
		AdministrationTTL:   15 * time.Minute,
		UserDeliveryTTL:     60 * time.Minute,
		TrendTTL:            24 * time.Hour,
		AdministrationLimit: 50,
		ProductsLimit:       15,
		TrendDays:           7,
		DefaultDepartments:  config.DefaultDepartments(),
		ExcludeTerms:        config.DefaultExcludeTerms(),
		ExcludePatterns:     config.DefaultExcludePatterns(),
	}
}

type dashboardEnv struct {
	svc   *StatsService
	repo  *fixtureRepo
	cache *cache.MetricCache
	clock *clockwork.FakeClock
}

func newDashboardEnv(t *testing.T, repo *fixtureRepo) dashboardEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	mc := cache.NewMetricCache(clock)
	svc, err := NewDashboard(repo, mc, clock, testStatsConfig(), logger.Discard())
	require.NoError(t, err)
	return dashboardEnv{svc: svc, repo: repo, cache: mc, clock: clock}
}

func testSources(repo StatsRepository) *Sources {
	return testSourcesIn(repo, time.UTC)
}

func testSourcesIn(repo StatsRepository, loc *time.Location) *Sources {
	cfg := testStatsConfig()
	filter, _ := NewAdministrationFilter(cfg.ExcludeTerms, cfg.ExcludePatterns)
	return NewSources(repo, clockwork.NewFakeClockAt(testNow), SourceOptions{
		AdministrationLimit: cfg.AdministrationLimit,
		ProductsLimit:       cfg.ProductsLimit,
		TrendDays:           cfg.TrendDays,
		DefaultDepartments:  cfg.DefaultDepartments,
		Filter:              filter,
		Location:            loc,
	})
}
