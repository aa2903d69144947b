// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free of ORM
// concerns. Aggregate roots map to one model each; the entities they own map to child
// models keyed by the root id and are rewritten with the root on save.
//
// Structure:
//   - base.go: BaseModel, AggregateModel and the AutoMigrate list
//   - partner.go: customers
//   - inventory.go: stock units, assignments, supplier orders and deliveries
//   - trade.go: sales with items, payments, shipments, credits and invoices
//   - support.go: tickets and their messages
package models
