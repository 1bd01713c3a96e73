package service

import (
	"encoding/json"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
)

func toDomainProduct(p repository.Product) domain.Product {
	return domain.Product{
		ID:      repository.UUIDString(p.ID),
		StoreID: repository.UUIDString(p.StoreID),
		Name:    p.Name,
		Price:   repository.Decimal(p.Price),
		Stock:   p.Stock,
	}
}

func toDomainStore(s repository.Store) domain.Store {
	return domain.Store{
		ID:      repository.UUIDString(s.ID),
		Slug:    s.Slug,
		Name:    s.Name,
		OwnerID: repository.UUIDString(s.OwnerID),
	}
}

func toDomainUser(u repository.User) domain.User {
	return domain.User{
		ID:        repository.UUIDString(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		IsGuest:   u.IsGuest,
		CreatedAt: u.CreatedAt.Time,
	}
}

func toDomainOrderItems(items []repository.OrderItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.OrderItem{
			ProductID: repository.UUIDString(it.ProductID),
			Quantity:  it.Quantity,
			Price:     repository.Decimal(it.UnitPrice),
		})
	}
	return out
}

func toDomainOrder(o repository.Order, items []repository.OrderItem) (*domain.Order, error) {
	meta, err := decodeMetadata(o.Metadata)
	if err != nil {
		return nil, err
	}
	return &domain.Order{
		ID:            repository.UUIDString(o.ID),
		UserID:        repository.UUIDString(o.UserID),
		StoreID:       repository.UUIDString(o.StoreID),
		Total:         repository.Decimal(o.Total),
		Status:        domain.OrderStatus(o.Status),
		PaymentMethod: o.PaymentMethod.String,
		Metadata:      meta,
		Items:         toDomainOrderItems(items),
		CreatedAt:     o.CreatedAt.Time,
		UpdatedAt:     o.UpdatedAt.Time,
	}, nil
}

func toDomainDiscount(c repository.DiscountCode) *domain.DiscountCode {
	return &domain.DiscountCode{
		ID:         repository.UUIDString(c.ID),
		StoreID:    repository.UUIDString(c.StoreID),
		Code:       c.Code,
		Type:       domain.DiscountType(c.Type),
		Value:      repository.Decimal(c.Value),
		MaxUses:    repository.Int32Ptr(c.MaxUses),
		UsedCount:  c.UsedCount,
		StartsAt:   repository.TimePtr(c.StartsAt),
		ExpiresAt:  repository.TimePtr(c.ExpiresAt),
		IsActive:   c.IsActive,
		ArchivedAt: repository.TimePtr(c.ArchivedAt),
		UpdatedAt:  c.UpdatedAt.Time,
	}
}

func toDomainInvoice(inv repository.Invoice, items []repository.OrderItem) (*domain.Invoice, error) {
	out := &domain.Invoice{
		ID:            repository.UUIDString(inv.ID),
		OrderID:       repository.UUIDString(inv.OrderID),
		StoreID:       repository.UUIDString(inv.StoreID),
		InvoiceNumber: inv.InvoiceNumber,
		ShareToken:    inv.ShareToken,
		Subtotal:      repository.Decimal(inv.Subtotal),
		Total:         repository.Decimal(inv.Total),
		Items:         toDomainOrderItems(items),
		IssuedAt:      inv.IssuedAt.Time,
		CancelledAt:   repository.TimePtr(inv.CancelledAt),
	}
	if len(inv.CustomerSnapshot) > 0 {
		if err := json.Unmarshal(inv.CustomerSnapshot, &out.Customer); err != nil {
			return nil, err
		}
	}
	if len(inv.StoreSnapshot) > 0 {
		if err := json.Unmarshal(inv.StoreSnapshot, &out.Store); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	meta := map[string]any{}
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func encodeMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}
