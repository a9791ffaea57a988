package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/comanda/internal/domain"
)

type orderRepository struct {
	q Querier
}

const orderColumns = `
	id, venue_id, code, customer_name, status, payment_status,
	total_amount, paid_amount, created_by, created_at, updated_at, closed_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	// Insert order
	query := `
		INSERT INTO orders (venue_id, code, customer_name, status, payment_status,
		                    total_amount, paid_amount, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		order.VenueID, order.Code, order.CustomerName, order.Status, order.PaymentStatus,
		order.TotalAmount, order.PaidAmount, order.CreatedBy, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	// Insert order items
	for i := range order.Items {
		itemQuery := `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, note)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		item := &order.Items[i]
		err = r.q.QueryRow(ctx, itemQuery,
			order.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Note,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		item.OrderID = order.ID
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, venueID, id int64) (*domain.Order, error) {
	return r.find(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 AND venue_id = $2`, venueID, id)
}

func (r *orderRepository) FindForUpdate(ctx context.Context, venueID, id int64) (*domain.Order, error) {
	return r.find(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 AND venue_id = $2 FOR UPDATE`, venueID, id)
}

func (r *orderRepository) find(ctx context.Context, query string, venueID, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.q.QueryRow(ctx, query, id, venueID))
	if err != nil {
		return nil, notFound(err, "order")
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, note
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.Note); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET code = $1, customer_name = $2, status = $3, payment_status = $4,
		    paid_amount = $5, updated_at = $6, closed_at = $7
		WHERE id = $8 AND venue_id = $9
	`
	tag, err := r.q.Exec(ctx, query,
		order.Code, order.CustomerName, order.Status, order.PaymentStatus,
		order.PaidAmount, order.UpdatedAt, order.ClosedAt, order.ID, order.VenueID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("order not found")
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context, venueID int64, status *domain.OrderStatus) ([]*domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE venue_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, venueID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func scanOrder(row Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.VenueID, &o.Code, &o.CustomerName, &o.Status, &o.PaymentStatus,
		&o.TotalAmount, &o.PaidAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
