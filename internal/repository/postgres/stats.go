package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/Masterminds/squirrel"
)

// флаг delivered и статус delivered не синхронизированы у писателей,
// поэтому доставленным считается заказ, у которого выполнено любое из условий
const deliveredPredicate = "(o.delivered = TRUE OR o.status = 'delivered')"

// StatsRepository инкапсулирует агрегирующие запросы для дашборда
// все методы только читают данные
type StatsRepository struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

// NewStatsRepository создает новый экземпляр репозитория статистики
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{
		db: db,
		// использую плейсхолдеры в стиле PostgreSQL ($1, $2, $3,...)
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CountOrders возвращает общее число заказов
func (r *StatsRepository) CountOrders(ctx context.Context) (int64, error) {
	const op = "repository.postgres.stats.CountOrders"

	query, args, err := r.sq.Select("COUNT(*)").From("orders o").ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: failed to count orders: %w", op, err)
	}
	return total, nil
}

// CountOrdersWithStatus возвращает число заказов с указанным статусом
func (r *StatsRepository) CountOrdersWithStatus(ctx context.Context, status model.OrderStatus) (int64, error) {
	const op = "repository.postgres.stats.CountOrdersWithStatus"

	query, args, err := r.sq.Select("COUNT(*)").
		From("orders o").
		Where(squirrel.Eq{"o.status": string(status)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: failed to count orders with status %q: %w", op, status, err)
	}
	return n, nil
}

// CountOrdersByStatus группирует заказы по значению поля status
// статусы без заказов в ответе отсутствуют, дополнять их — задача вызывающего
func (r *StatsRepository) CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	const op = "repository.postgres.stats.CountOrdersByStatus"

	query, args, err := r.sq.Select("o.status", "COUNT(*)").
		From("orders o").
		GroupBy("o.status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query status counts: %w", op, err)
	}
	defer rows.Close()

	out := make(map[model.OrderStatus]int64, len(model.OrderStatuses))
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%s: failed to scan status row: %w", op, err)
		}
		out[model.OrderStatus(status)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration failed: %w", op, err)
	}
	return out, nil
}

// CountDelivered возвращает общее число заказов и число доставленных одним запросом
func (r *StatsRepository) CountDelivered(ctx context.Context) (total, delivered int64, err error) {
	const op = "repository.postgres.stats.CountDelivered"

	query, args, err := r.sq.Select("COUNT(*)", "COUNT(*) FILTER (WHERE "+deliveredPredicate+")").
		From("orders o").
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total, &delivered); err != nil {
		return 0, 0, fmt.Errorf("%s: failed to count delivered orders: %w", op, err)
	}
	return total, delivered, nil
}

// DeliveredByAdministration считает доставленные заказы по подразделению заказчика
// пользователи без подразделения отбрасываются, сортировка по убыванию количества
func (r *StatsRepository) DeliveredByAdministration(ctx context.Context) ([]model.LabelCount, error) {
	const op = "repository.postgres.stats.DeliveredByAdministration"

	query, args, err := r.sq.Select("u.administration", "COUNT(o.id) AS cnt").
		From("orders o").
		Join("users u ON u.id = o.user_id").
		Where(deliveredPredicate).
		Where("u.administration IS NOT NULL").
		Where("TRIM(u.administration) <> ''").
		GroupBy("u.administration").
		OrderBy("cnt DESC", "u.administration").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query administrations: %w", op, err)
	}
	defer rows.Close()

	var out []model.LabelCount
	for rows.Next() {
		var lc model.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("%s: failed to scan administration row: %w", op, err)
		}
		out = append(out, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration failed: %w", op, err)
	}
	return out, nil
}

// DeliveredByUser считает доставленные заказы по пользователю, по убыванию количества
func (r *StatsRepository) DeliveredByUser(ctx context.Context) ([]model.UserDeliveryCount, error) {
	const op = "repository.postgres.stats.DeliveredByUser"

	query, args, err := r.sq.Select(
		"u.id", "u.name", "COALESCE(u.matricule, '')", "COALESCE(u.administration, '')", "COUNT(o.id) AS cnt",
	).
		From("orders o").
		Join("users u ON u.id = o.user_id").
		Where(deliveredPredicate).
		GroupBy("u.id", "u.name", "u.matricule", "u.administration").
		OrderBy("cnt DESC", "u.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query user deliveries: %w", op, err)
	}
	defer rows.Close()

	var out []model.UserDeliveryCount
	for rows.Next() {
		var u model.UserDeliveryCount
		if err := rows.Scan(&u.UserID, &u.Name, &u.Matricule, &u.Administration, &u.Count); err != nil {
			return nil, fmt.Errorf("%s: failed to scan user row: %w", op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration failed: %w", op, err)
	}
	return out, nil
}

// DeliveredProductQuantities суммирует доставленное количество по названию товара
func (r *StatsRepository) DeliveredProductQuantities(ctx context.Context, limit int) ([]model.LabelCount, error) {
	const op = "repository.postgres.stats.DeliveredProductQuantities"

	builder := r.sq.Select("p.name", "SUM(oi.quantity) AS qty").
		From("order_items oi").
		Join("orders o ON o.id = oi.order_id").
		Join("products p ON p.id = oi.product_id").
		Where(deliveredPredicate).
		GroupBy("p.name").
		OrderBy("qty DESC", "p.name")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query products: %w", op, err)
	}
	defer rows.Close()

	var out []model.LabelCount
	for rows.Next() {
		var lc model.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("%s: failed to scan product row: %w", op, err)
		}
		out = append(out, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration failed: %w", op, err)
	}
	return out, nil
}

// OrdersCreatedPerDay возвращает число заказов по дням начиная с since
// день определяется в зоне tz, а не в зоне сессии; дни без заказов в ответе отсутствуют
func (r *StatsRepository) OrdersCreatedPerDay(ctx context.Context, since time.Time, tz string) ([]model.DayCount, error) {
	const op = "repository.postgres.stats.OrdersCreatedPerDay"

	query, args, err := r.sq.Select().
		Column(squirrel.Expr("DATE(o.created_at AT TIME ZONE ?) AS day", tz)).
		Column("COUNT(*)").
		From("orders o").
		Where(squirrel.GtOrEq{"o.created_at": since}).
		GroupBy("day").
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query trend: %w", op, err)
	}
	defer rows.Close()

	var out []model.DayCount
	for rows.Next() {
		var dc model.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("%s: failed to scan day row: %w", op, err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration failed: %w", op, err)
	}
	return out, nil
}
