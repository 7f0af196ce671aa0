package models

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// Product categories and transaction types drawn by the generator.
var (
	ProductCategories = []string{"Electronics", "Clothing", "Books", "Toys"}
	TransactionTypes  = []string{"Credit", "Debit"}
)

// UserProfile is a synthetic user account.
type UserProfile struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Map returns the profile as a field name -> value mapping
func (p UserProfile) Map() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    p.UserID,
		"username":   p.Username,
		"email":      p.Email,
		"created_at": p.CreatedAt,
	}
}

// Product is a synthetic catalog entry.
type Product struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Stock       int64     `json:"stock"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Map returns the product as a field name -> value mapping
func (p Product) Map() map[string]interface{} {
	return map[string]interface{}{
		"product_id":   p.ProductID,
		"product_name": p.ProductName,
		"category":     p.Category,
		"price":        p.Price,
		"stock":        p.Stock,
		"description":  p.Description,
		"created_at":   p.CreatedAt,
	}
}

// Transaction references one user and one product.
// This is the row shape of the exported dataset.
type Transaction struct {
	TransactionID   string    `json:"transaction_id"`
	UserID          string    `json:"user_id"`
	ProductID       string    `json:"product_id"`
	Amount          float64   `json:"amount"`
	TransactionType string    `json:"transaction_type"`
	Date            time.Time `json:"date"`
	Description     string    `json:"description"`
}

// Map returns the transaction as a field name -> value mapping
func (t Transaction) Map() map[string]interface{} {
	return map[string]interface{}{
		"transaction_id":   t.TransactionID,
		"user_id":          t.UserID,
		"product_id":       t.ProductID,
		"amount":           t.Amount,
		"transaction_type": t.TransactionType,
		"date":             t.Date,
		"description":      t.Description,
	}
}

// TransactionSchema is the column layout shared by every exported file.
// Field order here is the order on disk for CSV, Parquet and Arrow.
var TransactionSchema = arrow.NewSchema([]arrow.Field{
	{Name: "transaction_id", Type: arrow.BinaryTypes.String},
	{Name: "user_id", Type: arrow.BinaryTypes.String},
	{Name: "product_id", Type: arrow.BinaryTypes.String},
	{Name: "amount", Type: arrow.PrimitiveTypes.Float64},
	{Name: "transaction_type", Type: arrow.BinaryTypes.String},
	{Name: "date", Type: arrow.FixedWidthTypes.Timestamp_us},
	{Name: "description", Type: arrow.BinaryTypes.String},
}, nil)

// TransactionFields returns the dataset column names in order
func TransactionFields() []string {
	names := make([]string, 0, TransactionSchema.NumFields())
	for _, f := range TransactionSchema.Fields() {
		names = append(names, f.Name)
	}
	return names
}

// Dataset is an ordered, write-once sequence of transactions.
type Dataset struct {
	Transactions []Transaction
}

// Len returns the number of rows in the dataset
func (d *Dataset) Len() int {
	return len(d.Transactions)
}
